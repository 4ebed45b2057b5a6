package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cellforge/gridlate"
)

// workbookFile is the YAML input format: formulas grouped by sheet,
// keyed by cell reference.
//
//	default_sheet: Sheet1
//	sheets:
//	  Sheet1:
//	    C1: "=SUM(A1:A3)"
//	  Sheet2:
//	    B2: "=Sheet1!C1*2"
type workbookFile struct {
	DefaultSheet string                       `yaml:"default_sheet"`
	Sheets       map[string]map[string]string `yaml:"sheets"`
}

// loadWorkbook reads a workbook file, builds a Workbook from it, and
// translates it. Sheets and cells are registered in sorted order so a
// given file always produces the same entry order.
func loadWorkbook(ctx context.Context, path string, cfg gridlate.Config, opts ...gridlate.Option) (*gridlate.TranslationResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from user CLI arg
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitFileNotFound, "reading file: %s", err)
	}

	var wf workbookFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, exitError(exitInputParse, "parsing %s: %s", path, err)
	}
	if len(wf.Sheets) == 0 {
		return nil, exitError(exitInputParse, "%s: no sheets defined", path)
	}

	if wf.DefaultSheet != "" {
		cfg.DefaultSheet = wf.DefaultSheet
	}

	wb := gridlate.NewWorkbook(cfg, opts...)

	sheetNames := make([]string, 0, len(wf.Sheets))
	for name := range wf.Sheets {
		sheetNames = append(sheetNames, name)
	}
	sort.Strings(sheetNames)

	for _, sheet := range sheetNames {
		cells := wf.Sheets[sheet]
		refs := make([]string, 0, len(cells))
		for ref := range cells {
			refs = append(refs, ref)
		}
		sort.Strings(refs)

		for _, ref := range refs {
			if err := wb.AddFormula(sheet, ref, cells[ref]); err != nil {
				return nil, exitError(exitInputParse, "%s: sheet %s: %s", path, sheet, err)
			}
		}
	}

	result, err := wb.Translate(ctx)
	if err != nil {
		return nil, exitError(exitTranslation, "translation: %s", err)
	}
	return result, nil
}

// loadConfigFlag resolves the --config flag: an explicit path loads
// that file, otherwise discovery walks up from the input's directory.
func loadConfigFlag(configPath, inputPath string) (gridlate.Config, error) {
	if configPath != "" {
		cfg, err := gridlate.LoadConfig(configPath)
		if err != nil {
			return gridlate.Config{}, exitError(exitInputParse, "%s", err)
		}
		return cfg, nil
	}

	dir, err := filepath.Abs(filepath.Dir(inputPath))
	if err != nil {
		return gridlate.DefaultConfig(), nil
	}
	cfg, err := gridlate.DiscoverConfig(dir)
	if err != nil {
		return gridlate.Config{}, exitError(exitInputParse, "%s", err)
	}
	return cfg, nil
}

func writeOutput(stdout io.Writer, outputPath, content string) error {
	if outputPath == "" {
		fmt.Fprint(stdout, content)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return exitError(exitTranslation, "writing %s: %s", outputPath, err)
	}
	return nil
}
