package vm

// ---------------------------------------------------------------------------
// Mixin linearization
// ---------------------------------------------------------------------------

// Linearize computes the ancestor search order of c without consulting the
// cache.
//
// Walking up the superclass chain, each type is emitted followed by its
// included modules in reverse inclusion order, so the most recent include
// wins. Each module is expanded recursively by the same rule. A type that
// was already emitted is skipped together with its expansion.
func Linearize(c *Class) []*Class {
	var order []*Class
	seen := make(map[*Class]bool)

	var emit func(t *Class)
	emit = func(t *Class) {
		if seen[t] {
			return
		}
		seen[t] = true
		order = append(order, t)
		for i := len(t.Includes) - 1; i >= 0; i-- {
			emit(t.Includes[i])
		}
	}

	for t := c; t != nil; t = t.Superclass {
		emit(t)
	}
	return order
}

// Ancestors returns c's linearized ancestor order, starting with c itself.
// The result is cached until the next structural change to c or to any of
// its ancestors. Callers must not modify the returned slice.
func (c *Class) Ancestors() []*Class {
	if c.ancestors != nil && c.ancestorsVersion == c.version {
		return c.ancestors
	}
	c.ancestors = Linearize(c)
	c.ancestorsVersion = c.version
	log.Debugf("linearized %s (v%d): %d ancestors", c.FullName(), c.version, len(c.ancestors))
	return c.ancestors
}

// AncestorNames returns the full names of c's ancestors in search order.
func (c *Class) AncestorNames() []string {
	anc := c.Ancestors()
	names := make([]string, len(anc))
	for i, a := range anc {
		names[i] = a.FullName()
	}
	return names
}
