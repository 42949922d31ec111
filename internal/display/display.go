package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/snpixel/worldquant/internal/model"
	"github.com/snpixel/worldquant/pkg/utils"
)

// ShowAlphas writes the accepted expressions in a copy-paste friendly
// format for manual submission on the platform.
func ShowAlphas(w io.Writer, alphas []model.ValidationResult, outputFile string) {
	if len(alphas) == 0 {
		fmt.Fprintln(w, "\n=== NO VALID ALPHAS GENERATED ===")
		fmt.Fprintln(w)
		return
	}

	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "                        GENERATED ALPHAS FOR WORLDQUANT                        ")
	fmt.Fprintln(w, rule+"\n")

	fmt.Fprintf(w, "Generated %d valid alpha expressions for manual submission.\n\n", len(alphas))
	if outputFile != "" {
		fmt.Fprintf(w, "These alphas have been saved to: %s\n\n", outputFile)
	}

	for i, alpha := range alphas {
		fmt.Fprintf(w, "Alpha #%d:\n", i+1)
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, utils.FormatExpression(alpha.Expression))
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, "Copy this expression to WorldQuant Brain for manual submission.")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nInstructions for manual submission:")
	fmt.Fprintln(w, "1. Log in to WorldQuant Brain (https://platform.worldquantbrain.com)")
	fmt.Fprintln(w, "2. Go to the Alpha Lab")
	fmt.Fprintln(w, "3. Create a new alpha and paste the expression")
	fmt.Fprintln(w, "4. Set parameters (region: USA, universe: TOP3000, etc.)")
	fmt.Fprintln(w, "5. Run simulation and submit if results look good")

	fmt.Fprintln(w, "\n"+rule)
}
