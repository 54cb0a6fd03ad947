package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/cookcut/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(t *testing.T, src Source) ([]models.RawRecipe, []error) {
	t.Helper()
	var (
		recipes []models.RawRecipe
		rowErrs []error
	)
	for {
		recipe, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return recipes, rowErrs
		}
		if IsRowError(err) {
			rowErrs = append(rowErrs, err)
			continue
		}
		require.NoError(t, err)
		recipes = append(recipes, recipe)
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSONL, DetectFormat("recipes.jsonl"))
	assert.Equal(t, FormatJSONL, DetectFormat("recipes.NDJSON"))
	assert.Equal(t, FormatCSV, DetectFormat("/data/recipes.csv"))
	assert.Equal(t, FormatXLSX, DetectFormat("recipes.xlsx"))
	assert.Equal(t, FormatHuggingFace, DetectFormat(""))
	assert.Equal(t, "", DetectFormat("recipes.parquet"))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(context.Background(), Config{Path: "recipes.parquet"})
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestJSONLSource(t *testing.T) {
	path := writeFile(t, "recipes.jsonl", `{"Title":"Tomato Soup","Ingredients":"['2 tomatoes', '1 onion']","Instructions":"Chop. Simmer.","Image_Name":"tomato-soup"}

{"Title":"Broken",
{"Title":"Pancakes","Ingredients":["flour","milk"],"Instructions":"Mix. Fry."}
`)
	src, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	defer src.Close()

	recipes, rowErrs := drain(t, src)
	require.Len(t, recipes, 2)
	assert.Len(t, rowErrs, 1)

	assert.Equal(t, "Tomato Soup", recipes[0].Title)
	assert.Equal(t, []string{"2 tomatoes", "1 onion"}, recipes[0].Ingredients)
	assert.Equal(t, 0, recipes[0].Row)
	assert.Equal(t, "Pancakes", recipes[1].Title)
	assert.Equal(t, 2, recipes[1].Row)
}

func TestJSONLSourceCancelled(t *testing.T) {
	path := writeFile(t, "recipes.jsonl", `{"Title":"A"}`+"\n")
	src, err := OpenJSONL(path)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVSource(t *testing.T) {
	path := writeFile(t, "recipes.csv", ",Title,Ingredients,Instructions,Image_Name,Cleaned_Ingredients\n"+
		`0,Tomato Soup,"['2 tomatoes', '1 onion, diced']","Chop. Simmer.",tomato-soup,"['tomatoes', 'onion']"`+"\n"+
		`1,Toast,"['bread']",Toast it.,,`+"\n")
	src, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	defer src.Close()

	recipes, rowErrs := drain(t, src)
	assert.Empty(t, rowErrs)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Tomato Soup", recipes[0].Title)
	assert.Equal(t, []string{"2 tomatoes", "1 onion, diced"}, recipes[0].Ingredients)
	assert.Equal(t, []string{"tomatoes", "onion"}, recipes[0].CleanedIngredients)
	assert.Equal(t, "tomato-soup", recipes[0].ImageName)
	assert.Equal(t, "Toast", recipes[1].Title)
	assert.Equal(t, 1, recipes[1].Row)
	assert.Empty(t, recipes[1].ImageName)
}

func TestCSVSourceByteOrderMark(t *testing.T) {
	path := writeFile(t, "recipes.csv", "\uFEFFTitle,Ingredients,Instructions\n"+
		`Tomato Soup,"['tomatoes']",Simmer.`+"\n")
	src, err := OpenCSV(path)
	require.NoError(t, err)
	defer src.Close()

	recipes, rowErrs := drain(t, src)
	assert.Empty(t, rowErrs)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Tomato Soup", recipes[0].Title)
	assert.Equal(t, []string{"tomatoes"}, recipes[0].Ingredients)
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := OpenCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestXLSXSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Title", "Ingredients", "Instructions", "Image_Name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Tomato Soup", "['2 tomatoes']", "Simmer.", "tomato-soup"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Pancakes", "flour\nmilk", "Fry."}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	defer src.Close()

	recipes, rowErrs := drain(t, src)
	assert.Empty(t, rowErrs)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Tomato Soup", recipes[0].Title)
	assert.Equal(t, []string{"2 tomatoes"}, recipes[0].Ingredients)
	assert.Equal(t, "Pancakes", recipes[1].Title)
	assert.Equal(t, []string{"flour", "milk"}, recipes[1].Ingredients)
	assert.Equal(t, 1, recipes[1].Row)
}

func TestOpenLimit(t *testing.T) {
	path := writeFile(t, "recipes.jsonl", `{"Title":"A"}`+"\n"+`{"Title":"B"}`+"\n"+`{"Title":"C"}`+"\n")
	src, err := Open(context.Background(), Config{Path: path, Format: "JSONL", Limit: 2})
	require.NoError(t, err)
	defer src.Close()

	recipes, _ := drain(t, src)
	require.Len(t, recipes, 2)
	assert.Equal(t, "B", recipes[1].Title)
}
