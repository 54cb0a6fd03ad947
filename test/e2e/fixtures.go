package e2e

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
	"github.com/xuri/excelize/v2"
)

// DatasetFormats are the local file formats the corpus can be written as.
var DatasetFormats = []string{"jsonl", "csv", "xlsx"}

var kaggleHeader = []string{"Title", "Ingredients", "Instructions", "Image_Name", "Cleaned_Ingredients"}

// WriteDataset writes recipes to path in the Kaggle column layout. List columns are
// JSON arrays in jsonl and Python list literals in csv and xlsx, as in the published dataset.
func WriteDataset(path, format string, recipes []models.RawRecipe) error {
	switch format {
	case "jsonl":
		return writeJSONL(path, recipes)
	case "csv":
		return writeCSV(path, recipes)
	case "xlsx":
		return writeXLSX(path, recipes)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeJSONL(path string, recipes []models.RawRecipe) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, r := range recipes {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func kaggleRow(r models.RawRecipe) []string {
	return []string{r.Title, pythonList(r.Ingredients), r.Instructions, r.ImageName, pythonList(r.CleanedIngredients)}
}

func writeCSV(path string, recipes []models.RawRecipe) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(kaggleHeader); err != nil {
		return err
	}
	for _, r := range recipes {
		if err := w.Write(kaggleRow(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, recipes []models.RawRecipe) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &kaggleHeader); err != nil {
		return err
	}
	for i, r := range recipes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := kaggleRow(r)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// pythonList renders items the way pandas wrote the Kaggle CSV: ['a', 'b'].
func pythonList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + strings.ReplaceAll(item, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
