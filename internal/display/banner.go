package display

import (
	"fmt"
	"os"

	"github.com/tiandaoyouchang-png/vap-master/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if term.Magenta != "" {
		fmt.Fprint(os.Stdout, term.Magenta)
	}
	fmt.Fprint(os.Stdout, `__     __         __  __           _
\ \   / /_ _ _ __|  \/  | __ _ ___| |_ ___ _ __
 \ \ / / _`+"`"+` | '_ \ |\/| |/ _`+"`"+` / __| __/ _ \ '__|
  \ V / (_| | |_) | |  | | (_| \__ \ ||  __/ |
   \_/ \__,_| .__/|_|  |_|\__,_|___/\__\___|_|
            |_|
`)
	if term.Magenta != "" {
		fmt.Fprintln(os.Stdout, term.NC)
	}
}
