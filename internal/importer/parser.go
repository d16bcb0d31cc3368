// Package importer implements the CSV bulk-import flow for organization
// members: upload validation, parsing, preview and the simulated import.
package importer

import (
	"errors"
	"path/filepath"
	"strings"

	"voteflow-backend/internal/models"
)

// MaxFileBytes is the largest upload accepted.
const MaxFileBytes = 5 * 1024 * 1024

var (
	ErrNotCSV       = errors.New("Please upload a CSV file")
	ErrFileTooLarge = errors.New("File size must be less than 5MB")
	ErrNoValidRows  = errors.New("No valid data found in CSV file")
)

// ValidateUpload checks the type and size guard. A file passes the type
// check if either its extension is .csv or its content type is text/csv.
func ValidateUpload(name, contentType string, size, limit int64) error {
	if limit <= 0 {
		limit = MaxFileBytes
	}
	isCSV := strings.EqualFold(filepath.Ext(name), ".csv") ||
		strings.HasPrefix(strings.ToLower(contentType), "text/csv")
	if !isCSV {
		return ErrNotCSV
	}
	if size > limit {
		return ErrFileTooLarge
	}
	return nil
}

// Parse turns raw CSV text into validated member rows in file order.
//
// The first line is the header row. Fields are split on bare commas; quoted
// fields are not supported, so a comma inside quotes shifts later columns.
// Rows missing name, email or role are dropped without an error.
func Parse(text string) []models.CSVMember {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return nil
	}

	rawHeaders := strings.Split(lines[0], ",")
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var out []models.CSVMember
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, ",")
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = strings.TrimSpace(values[i])
			} else {
				row[h] = ""
			}
		}

		if row["name"] == "" || row["email"] == "" || row["role"] == "" {
			continue
		}

		out = append(out, models.CSVMember{
			MemberID:   row["member_id"],
			Name:       row["name"],
			Email:      row["email"],
			Role:       models.ParseRole(row["role"]),
			Phone:      row["phone"],
			Position:   row["position"],
			Department: row["department"],
			Status:     models.ParseMemberStatus(row["status"]),
		})
	}
	return out
}

// CountDataLines reports the number of non-blank lines after the header.
func CountDataLines(text string) int {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	n := 0
	for i, l := range lines {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
