package banner

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Print writes the startup banner to stdout.
func Print(version string) {
	fig := figure.NewColorFigure("AUTH0SCAN", "doom", "red", true)
	fig.Print()

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Println("════════════════════════════════════════════════")
	_, _ = green.Println("    Auth0 Tenant Security Assessment | v" + version)
	_, _ = cyan.Println("════════════════════════════════════════════════")
}
