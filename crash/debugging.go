package crash

import "github.com/tombergan/cstack/diag"

var log = diag.Logger("crash")
