package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	Required:   []string{"company", "amount", "frequency", "category", "date"},
	EchoLabels: []string{"Entertainment", "Bills", "Utilities", "Other", "Weekly", "Monthly", "Yearly"},
}

func TestParseTable_ValidFile(t *testing.T) {
	text := "Company,Amount,Frequency,Category,Date\n" +
		`Netflix,"£12.99",Monthly,Entertainment,15` + "\n" +
		"Gym,£30,Monthly,Other,1\n"

	table, err := ParseTable(text, testSchema)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)

	rec := table.Records[0]
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, "Netflix", rec.Get("company"))
	assert.Equal(t, "£12.99", rec.Get("amount"))
	assert.Equal(t, "Monthly", rec.Get("frequency"))
	assert.Equal(t, "Entertainment", rec.Get("category"))
	assert.Equal(t, "15", rec.Get("date"))
	assert.Empty(t, table.Skipped)
}

func TestParseTable_LineEndingsAndBOM(t *testing.T) {
	for name, text := range map[string]string{
		"crlf": "\ufeffCompany,Amount,Frequency,Category,Date\r\nRent,950,Monthly,Bills,1\r\n",
		"cr":   "Company,Amount,Frequency,Category,Date\rRent,950,Monthly,Bills,1",
	} {
		t.Run(name, func(t *testing.T) {
			table, err := ParseTable(text, testSchema)
			require.NoError(t, err)
			require.Len(t, table.Records, 1)
			assert.Equal(t, "Rent", table.Records[0].Get("company"))
			assert.Equal(t, "1", table.Records[0].Get("date"))
		})
	}
}

func TestParseTable_HeaderSubstringMatch(t *testing.T) {
	text := "Company Name;Payment Amount (£);Billing Frequency;Spend Category;Debit Date\n" +
		"Council Tax;£150.00;Monthly;Bills;1\n"

	table, err := ParseTable(text, testSchema)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "£150.00", table.Records[0].Get("amount"))
}

func TestParseTable_MissingHeaders(t *testing.T) {
	text := "Company,Amt,Freq,Cat,Date\nNetflix,12.99,Monthly,Entertainment,15\n"

	_, err := ParseTable(text, testSchema)

	var mhe *MissingHeaderError
	require.True(t, errors.As(err, &mhe), "got %v", err)
	assert.Equal(t, []string{"amount", "frequency", "category"}, mhe.Missing)
	assert.Equal(t, []string{"Company", "Amt", "Freq", "Cat", "Date"}, mhe.Found)
	assert.Contains(t, err.Error(), "amount, frequency, category")
}

func TestParseTable_InstructionsOnly(t *testing.T) {
	text := "# Fill in one row per bill\n" +
		"Instructions: use one row per obligation\n" +
		"Valid categories: Entertainment, Bills\n" +
		"Entertainment, Bills, Utilities, Other\n" +
		"Weekly;Monthly;Yearly\n" +
		"\n   \n"

	_, err := ParseTable(text, testSchema)

	var efe *EmptyFileError
	require.True(t, errors.As(err, &efe), "got %v", err)
	assert.Equal(t, 7, efe.TotalLines)
	assert.Equal(t, 0, efe.SurvivingLines)

	var mhe *MissingHeaderError
	assert.False(t, errors.As(err, &mhe))
}

func TestParseTable_HeaderWithoutRows(t *testing.T) {
	_, err := ParseTable("Company,Amount,Frequency,Category,Date\n# example row removed\n", testSchema)

	var efe *EmptyFileError
	require.True(t, errors.As(err, &efe))
	assert.Equal(t, 2, efe.TotalLines)
	assert.Equal(t, 1, efe.SurvivingLines)
}

func TestParseTable_SkipsRowsMissingValues(t *testing.T) {
	text := "Company,Amount,Frequency,Category,Date\n" +
		"Netflix,12.99,Monthly,Entertainment,15\n" +
		"Spotify,,Monthly,Entertainment,3\n" +
		"Example: Netflix,12.99,Monthly,Entertainment,15\n" +
		"Gym,30\n"

	table, err := ParseTable(text, testSchema)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	require.Len(t, table.Skipped, 2)
	assert.Equal(t, SkippedLine{Line: 3, Reason: "missing amount"}, table.Skipped[0])
	assert.Equal(t, 5, table.Skipped[1].Line)
	assert.Equal(t, "missing frequency, category, date", table.Skipped[1].Reason)
}

func TestParseTable_DataRowWithLabelsIsKept(t *testing.T) {
	text := "Company,Amount,Frequency,Category,Date\nBills,10,Monthly,Bills,4\n"

	table, err := ParseTable(text, testSchema)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "Bills", table.Records[0].Get("company"))
}
