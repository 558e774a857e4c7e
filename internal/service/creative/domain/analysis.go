// internal/service/creative/domain/analysis.go
package domain

import "fmt"

// AdAnalysis is the structured layout/style description extracted from the
// reference ad. It is produced once per run and snapshotted on the AdRun.
type AdAnalysis struct {
	FormatType          string   `json:"format_type"`
	LayoutStructure     string   `json:"layout_structure"`
	FixedElements       []string `json:"fixed_elements"`
	VariableElements    []string `json:"variable_elements"`
	TextPlacement       string   `json:"text_placement"`
	ColorPalette        []string `json:"color_palette"`
	AuthenticityMarkers []string `json:"authenticity_markers"`
	CanvasSize          string   `json:"canvas_size"`
	DetailedDescription string   `json:"detailed_description"`
}

// Validate is the single boundary check applied to the model's JSON before
// the analysis is allowed into the rest of the run.
func (a *AdAnalysis) Validate() error {
	if a.FormatType == "" {
		return fmt.Errorf("analysis: missing format_type")
	}
	if a.DetailedDescription == "" {
		return fmt.Errorf("analysis: missing detailed_description")
	}
	return nil
}
