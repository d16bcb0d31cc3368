package importer

import (
	"bytes"
	"encoding/csv"
)

// TemplateHeader is the column order of the downloadable template.
var TemplateHeader = []string{"member_id", "name", "email", "role", "phone", "position", "department", "status"}

var templateRows = [][]string{
	{"STU001", "John Doe", "john.doe@example.com", "voter", "+2348012345678", "Student", "Computer Science", "active"},
	{"STU002", "Jane Smith", "jane.smith@example.com", "admin", "+2348087654321", "Class Representative", "Mathematics", "active"},
}

// Template renders the sample file offered by "Download Template".
func Template() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TemplateHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(templateRows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
