package report

import (
	"github.com/spf13/afero"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/pkg/utils"
)

// WriteHTML stores the completion text at path exactly as returned. The
// file only appears once fully written.
func WriteHTML(fs afero.Fs, path, html string) error {
	if err := utils.WriteFileAtomic(fs, path, []byte(html)); err != nil {
		return fault.Write("write report", path, err)
	}
	return nil
}
