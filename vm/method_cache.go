package vm

// Resolution caching
//
// Each class keeps a map from selector to the entry found by the last full
// ancestor walk, tagged with the class version it was computed at. Any
// structural change bumps the version of the class and its dependents, so
// a stale entry is never served: the next Lookup rebuilds the map. Misses
// are cached as nil entries under the same rule.

// Lookup resolves selector through c's ancestor order and returns the first
// entry found, or nil when no ancestor defines it or an undef marker is hit
// first.
func (c *Class) Lookup(selector int) *MethodEntry {
	if selector < 0 {
		return nil
	}
	if c.cache == nil || c.cacheVersion != c.version {
		c.cache = make(map[int]*MethodEntry)
		c.cacheVersion = c.version
	} else if e, ok := c.cache[selector]; ok {
		return e
	}

	e := c.lookupUncached(selector)
	c.cache[selector] = e
	return e
}

func (c *Class) lookupUncached(selector int) *MethodEntry {
	for _, a := range c.Ancestors() {
		if e, ok := a.methods[selector]; ok {
			if e.Undefined {
				return nil
			}
			return e
		}
	}
	return nil
}

// LookupAfter resolves selector in c's ancestor order starting just after
// owner. It is the lookup used by super.
func (c *Class) LookupAfter(owner *Class, selector int) *MethodEntry {
	if selector < 0 {
		return nil
	}
	found := false
	for _, a := range c.Ancestors() {
		if !found {
			found = a == owner
			continue
		}
		if e, ok := a.methods[selector]; ok {
			if e.Undefined {
				return nil
			}
			return e
		}
	}
	return nil
}

// LookupMethod looks up a method by selector name.
func (c *Class) LookupMethod(selectors *SelectorTable, name string) *MethodEntry {
	return c.Lookup(selectors.Lookup(name))
}

// RespondsTo reports whether instances of c resolve name, optionally
// counting private methods.
func (c *Class) RespondsTo(selectors *SelectorTable, name string, includePrivate bool) bool {
	e := c.LookupMethod(selectors, name)
	if e == nil {
		return false
	}
	return includePrivate || e.Visibility == Public
}
