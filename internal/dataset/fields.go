package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
)

// Column names used by the Kaggle recipes dataset.
const (
	fieldTitle              = "Title"
	fieldIngredients        = "Ingredients"
	fieldInstructions       = "Instructions"
	fieldImageName          = "Image_Name"
	fieldCleanedIngredients = "Cleaned_Ingredients"
)

// recipeFromFields builds a recipe from a decoded row. Ingredient columns may be
// JSON arrays or strings holding a Python list literal.
func recipeFromFields(fields map[string]interface{}, row int) (models.RawRecipe, error) {
	recipe := models.RawRecipe{Row: row}
	var err error
	recipe.Title = stringField(fields, fieldTitle)
	recipe.Instructions = stringField(fields, fieldInstructions)
	recipe.ImageName = stringField(fields, fieldImageName)
	if recipe.Ingredients, err = listField(fields, fieldIngredients); err != nil {
		return recipe, &RowError{Row: row, Err: err}
	}
	if recipe.CleanedIngredients, err = listField(fields, fieldCleanedIngredients); err != nil {
		return recipe, &RowError{Row: row, Err: err}
	}
	return recipe, nil
}

func lookup(fields map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := fields[name]; ok {
		return v, true
	}
	for k, v := range fields {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func stringField(fields map[string]interface{}, name string) string {
	v, ok := lookup(fields, name)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func listField(fields map[string]interface{}, name string) ([]string, error) {
	v, ok := lookup(fields, name)
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case []string:
		return t, nil
	case string:
		items, err := ParseList(t)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", name, v)
	}
}

// ParseList parses a list column. Bracketed values are read as a Python or JSON
// list literal of quoted strings. Anything else is split on newlines.
func ParseList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") {
		var out []string
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out, nil
	}
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("unterminated list literal")
	}
	body := []rune(s[1 : len(s)-1])
	var (
		out []string
		i   int
	)
	for i < len(body) {
		r := body[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ',':
			i++
		case r == '\'' || r == '"':
			item, next, err := readQuoted(body, i)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
			i = next
		default:
			// bare item such as a number; read to the next comma
			j := i
			for j < len(body) && body[j] != ',' {
				j++
			}
			out = append(out, strings.TrimSpace(string(body[i:j])))
			i = j
		}
	}
	return out, nil
}

func readQuoted(body []rune, start int) (string, int, error) {
	quote := body[start]
	var b strings.Builder
	for i := start + 1; i < len(body); i++ {
		r := body[i]
		if r == '\\' && i+1 < len(body) {
			i += writeEscape(&b, body, i)
			continue
		}
		if r == quote {
			return b.String(), i + 1, nil
		}
		b.WriteRune(r)
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}

// writeEscape decodes the Python escape sequence starting at body[i], which is a
// backslash, and returns how many runes past the backslash it consumed. Unknown
// escapes are kept verbatim, as Python does.
func writeEscape(b *strings.Builder, body []rune, i int) int {
	switch next := body[i+1]; next {
	case '\'', '"', '\\':
		b.WriteRune(next)
		return 1
	}
	end := i + 10 // \UXXXXXXXX is the longest escape
	if end > len(body) {
		end = len(body)
	}
	seq := string(body[i:end])
	value, _, tail, err := strconv.UnquoteChar(seq, 0)
	if err != nil {
		b.WriteRune('\\')
		b.WriteRune(body[i+1])
		return 1
	}
	b.WriteRune(value)
	return len(seq) - len(tail) - 1
}
