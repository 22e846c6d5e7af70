package vm

import "github.com/tliron/commonlog"

var log = commonlog.GetLogger("rubric.vm")
