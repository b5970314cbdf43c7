package display

import (
	"fmt"
	"io"

	"github.com/backmassage/lyricmux/internal/config"
	"github.com/backmassage/lyricmux/internal/term"
)

// PrintBanner writes the startup banner and version to w. It is colored
// magenta when colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, ` _               _
| |_  _ _ _(_)__ _ __  _  ___ __
| | || | '_| / _| '  \| || \ \ /
|_|\_, |_| |_\__|_|_|_|\_,_/_\_\
   |__/
`)
	fmt.Fprint(w, term.NC)
	fmt.Fprintf(w, "lyricmux v%s\n", config.Version)
}
