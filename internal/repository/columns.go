package repository

import (
	"strconv"
	"strings"
)

// TableColumns is the ordered column list of a table. Insert arguments are
// passed in the same order.
type TableColumns struct {
	TableName string
	Columns   []string
}

// ContactColumns are the columns of contact_submissions.
var ContactColumns = TableColumns{
	TableName: "contact_submissions",
	Columns: []string{
		"id",
		"name",
		"email",
		"phone",
		"company",
		"industry",
		"call_volume",
		"message",
		"created_at",
	},
}

// DemoSubmissionColumns are the columns of demo_submissions.
var DemoSubmissionColumns = TableColumns{
	TableName: "demo_submissions",
	Columns: []string{
		"id",
		"business_name",
		"email",
		"phone_number",
		"service_type",
		"created_at",
	},
}

// Select returns "id, name, ...".
func (tc TableColumns) Select() string {
	return strings.Join(tc.Columns, ", ")
}

// Placeholders returns "$1, $2, ..." for every column.
func (tc TableColumns) Placeholders() string {
	placeholders := make([]string, len(tc.Columns))
	for i := range tc.Columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(placeholders, ", ")
}

// InsertSQL returns an INSERT statement covering every column.
func (tc TableColumns) InsertSQL() string {
	return "INSERT INTO " + tc.TableName + " (" + tc.Select() + ") VALUES (" + tc.Placeholders() + ")"
}

// Count returns the number of columns.
func (tc TableColumns) Count() int {
	return len(tc.Columns)
}
