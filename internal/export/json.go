package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/piwi3910/polynest/internal/model"
)

// JSONReport is the on-disk shape of an exported nesting result.
type JSONReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Sheet       model.Sheet      `json:"sheet"`
	Result      model.NestResult `json:"result"`
}

// ExportJSON writes the nesting result, together with the sheet it was
// computed for, as indented JSON.
func ExportJSON(path string, result model.NestResult, sheet model.Sheet) error {
	report := JSONReport{
		GeneratedAt: time.Now(),
		Sheet:       sheet,
		Result:      result,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
