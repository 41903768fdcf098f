package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		name   string
		raw    interface{}
		amount float64
		ok     bool
	}{
		{"missing", nil, 0, true},
		{"float", 1500.5, 1500.5, true},
		{"int", 20000, 20000, true},
		{"int64", int64(7), 7, true},
		{"json number", json.Number("12.25"), 12.25, true},
		{"numeric string", " 15000 ", 15000, true},
		{"empty string", "", 0, true},
		{"garbage string", "fifteen", 0, false},
		{"bool", true, 0, false},
		{"nan", math.NaN(), 0, false},
		{"map", map[string]interface{}{}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount, ok := CoerceAmount(tc.raw)
			assert.Equal(t, tc.amount, amount)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestFeeLedgerFromFieldsCoercesAndWarns(t *testing.T) {
	fields := map[string]interface{}{
		"studentId":    "S-1",
		"academicYear": "2024-2025",
		"totalFee":     "15000",
		"totalPaid":    "n/a",
		"status":       "PENDING",
		"updatedAt":    "2024-06-01T10:00:00Z",
		"items": []interface{}{
			map[string]interface{}{"id": "TUITION", "type": "TERM", "amount": 15000.0, "paidAmount": "oops"},
			"not-an-item",
		},
	}

	ledger, warnings := FeeLedgerFromFields("S-1_2024-2025", fields)

	assert.Equal(t, "S-1", ledger.StudentID)
	assert.Equal(t, 15000.0, ledger.TotalFee)
	assert.Equal(t, 0.0, ledger.TotalPaid)
	assert.Equal(t, 15000.0, ledger.Outstanding())
	require.NotNil(t, ledger.UpdatedAt)
	assert.Nil(t, ledger.CreatedAt)
	require.Len(t, ledger.Items, 1)
	assert.Equal(t, 0, ledger.ItemIndex("TUITION"))
	assert.Equal(t, -1, ledger.ItemIndex(LedgerItemPreviousBalance))

	require.Len(t, warnings, 2)
	assert.Equal(t, "totalPaid", warnings[0].Field)
	assert.Equal(t, "items[0].paidAmount", warnings[1].Field)
	assert.Contains(t, warnings[0].String(), "fee_ledgers/S-1_2024-2025")
}

func TestLedgerItemKeepsUnknownFields(t *testing.T) {
	ledger, _ := FeeLedgerFromFields("S-1_2025-2026", map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"id": "TUITION_T1", "amount": 5000.0, "termId": "T1", "status": "PENDING"},
		},
	})
	require.Len(t, ledger.Items, 1)
	assert.Equal(t, map[string]interface{}{"termId": "T1"}, ledger.Items[0].Extra)

	ledger.Items[0].Status = LedgerStatusPaid
	raw, err := json.Marshal(ledger.Items[0])
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "T1", decoded["termId"])
	assert.Equal(t, LedgerStatusPaid, decoded["status"])
	assert.Equal(t, 5000.0, decoded["amount"])

	plain, err := json.Marshal(LedgerItem{ID: "X", Extra: map[string]interface{}{"id": "shadowed"}})
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"id":"X"`)
	assert.NotContains(t, string(plain), "shadowed")
}

func TestOutstandingIsNotClamped(t *testing.T) {
	ledger := FeeLedger{TotalFee: 100, TotalPaid: 250}
	assert.Equal(t, -150.0, ledger.Outstanding())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "S-9_2025-2026", FeeLedgerKey("S-9", "2025-2026"))
	assert.Equal(t, "2025_class-3", YearScopedKey("2025", "class-3", ""))
	assert.Equal(t, "2025_class-3_B", YearScopedKey("2025", "class-3", "B"))
}

func TestParseStudentStatus(t *testing.T) {
	assert.Equal(t, StudentStatusActive, ParseStudentStatus(""))
	assert.Equal(t, StudentStatusDetained, ParseStudentStatus(" detained "))
	assert.True(t, Student{Status: ParseStudentStatus("alumni")}.IsArchived())
	assert.False(t, Student{Status: StudentStatusDetained}.IsArchived())
	assert.True(t, RoleSuperAdmin.IsAdministrative())
	assert.False(t, RoleTeacher.IsAdministrative())
}

func TestAcademicYearConfigHelpers(t *testing.T) {
	cfg := AcademicYearConfig{CurrentYear: UnknownAcademicYear, History: []YearHistoryEntry{{Year: "2023-2024"}}}
	assert.False(t, cfg.IsKnown())
	assert.True(t, cfg.HasArchived("2023-2024"))
	assert.False(t, cfg.HasArchived("2024-2025"))
}
