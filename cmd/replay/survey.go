package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opensource-health/heron/internal/domain"
)

// SurveyRow is one labelled PCOS survey response.
type SurveyRow struct {
	Line         int
	Observations domain.Observations
	Diagnosed    bool
}

// surveyColumns maps lower-cased CSV headers to observation keys.
var surveyColumns = map[string]string{
	"age":                "age",
	"height":             "heightCm",
	"heightcm":           "heightCm",
	"weight":             "weightKg",
	"weightkg":           "weightKg",
	"bmi":                "bmi",
	"cyclelength":        "cycleLength",
	"missedperiods":      "missedPeriods",
	"periodslateoften":   "periodsLateOften",
	"acne":               "acne",
	"hairfall":           "hairFall",
	"facialhair":         "facialHair",
	"weightgainrecently": "weightGainRecently",
	"weightgain":         "weightGainRecently",
	"familyhistorypcos":  "familyHistoryPCOS",
	"familyhistory":      "familyHistoryPCOS",
}

var numericKeys = map[string]bool{
	"age": true, "heightCm": true, "weightKg": true, "bmi": true, "cycleLength": true,
}

// ReadSurvey parses survey rows. Headers are matched case-insensitively
// with spaces and underscores ignored. Malformed rows are skipped.
func ReadSurvey(r io.Reader, labelColumn string, limit int) ([]SurveyRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	label := -1
	keys := make(map[int]string)
	for i, col := range header {
		name := normalizeHeader(col)
		if name == normalizeHeader(labelColumn) {
			label = i
			continue
		}
		if key, ok := surveyColumns[name]; ok {
			keys[i] = key
		}
	}
	if label < 0 {
		return nil, fmt.Errorf("label column %q not found", labelColumn)
	}

	var rows []SurveyRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil || label >= len(record) {
			continue
		}

		obs := make(domain.Observations, len(keys))
		for i, key := range keys {
			if i >= len(record) {
				continue
			}
			if v, ok := parseValue(key, record[i]); ok {
				obs[key] = v
			}
		}

		rows = append(rows, SurveyRow{
			Line:         line,
			Observations: obs,
			Diagnosed:    yes(record[label]),
		})
		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, nil
}

func normalizeHeader(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "", "(cm)", "cm", "(kg)", "kg").
		Replace(strings.ToLower(strings.TrimSpace(s)))
}

// parseValue reads numbers for numeric keys and yes/no answers for the rest.
// Free-text answers such as acne severity pass through lower-cased.
func parseValue(key, raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if numericKeys[key] {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}

	switch v := strings.ToLower(raw); v {
	case "y", "yes", "1", "true":
		return "yes", true
	case "n", "no", "0", "false":
		return "no", true
	default:
		return v, true
	}
}

func yes(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "1", "true":
		return true
	default:
		return false
	}
}
