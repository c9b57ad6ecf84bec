// Package all registers every built-in stage.
package all

import (
	_ "github.com/bodrovis/mojibake-repair-core/pkg/stage/1_promote_latin1"
	_ "github.com/bodrovis/mojibake-repair-core/pkg/stage/2_known_sequences"
	_ "github.com/bodrovis/mojibake-repair-core/pkg/stage/3_verify_utf8"
)
