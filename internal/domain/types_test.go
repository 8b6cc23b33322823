package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationResultOrdering(t *testing.T) {
	tests := []struct {
		name   string
		worse  EvaluationResult
		better EvaluationResult
	}{
		{"Fail worse than undetermined", FAIL, UNDETERMINED},
		{"Undetermined worse than warn", UNDETERMINED, WARN},
		{"Warn worse than pass", WARN, PASS},
		{"Fail worse than pass", FAIL, PASS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.worse.IsWorseThan(tt.better))
			assert.False(t, tt.better.IsWorseThan(tt.worse))
		})
	}

	assert.False(t, PASS.IsWorseThan(PASS))
	assert.False(t, EvaluationResult("MAYBE").IsValid())
}

func TestDrugInteractionValidate(t *testing.T) {
	assert.NoError(t, DrugInteraction{Name: "3A4", Type: INDUCER, Strength: STRONG}.Validate())
	assert.NoError(t, DrugInteraction{Name: "3A4", Type: SUBSTRATE}.Validate())
	assert.ErrorIs(t, DrugInteraction{Name: "3A4", Type: "BLOCKER"}.Validate(), ErrInvalidInteractionType)
	assert.ErrorIs(t, DrugInteraction{Name: "3A4", Type: INHIBITOR, Strength: "HUGE"}.Validate(), ErrInvalidInteractionStrength)
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01"`), &d))
	assert.Equal(t, NewDate(2024, time.March, 1), d)

	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01T22:30:00Z"`), &d))
	assert.Equal(t, "2024-03-01", d.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"01/03/2024"`), &d))

	out, err := json.Marshal(NewDate(2023, time.December, 31))
	require.NoError(t, err)
	assert.JSONEq(t, `"2023-12-31"`, string(out))
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.March, 1)

	assert.Equal(t, NewDate(2024, time.February, 29), d.AddDays(-1))
	assert.Equal(t, NewDate(2024, time.February, 16), d.MinusWeeks(2))
	assert.True(t, d.AddDays(-1).Before(d))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.True(t, d.Equal(DateOf(time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC))))
}

func TestPatientRecordMedicationPresence(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantPresent bool
		wantCount   int
	}{
		{"Absent field", `{"patient_id":"P1"}`, false, 0},
		{"Explicit null", `{"patient_id":"P1","medications":null}`, false, 0},
		{"Empty list", `{"patient_id":"P1","medications":[]}`, true, 0},
		{"One medication", `{"patient_id":"P1","medications":[{"name":"Paracetamol"}]}`, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record PatientRecord
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &record))
			assert.Equal(t, tt.wantPresent, record.HasMedicationData())
			assert.Len(t, record.Medications, tt.wantCount)
		})
	}
}

func TestPatientRecordRoundTripKeepsEmptyMedications(t *testing.T) {
	record := PatientRecord{PatientID: "P1", Medications: []Medication{}}
	out, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded PatientRecord
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.True(t, decoded.HasMedicationData())

	missing := record.WithMedications(nil)
	out, err = json.Marshal(missing)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.False(t, decoded.HasMedicationData())
	assert.True(t, record.HasMedicationData(), "WithMedications must not modify the original")
}

func TestPatientRecordValidate(t *testing.T) {
	who := 6
	start := NewDate(2024, time.May, 1)
	stop := NewDate(2024, time.April, 1)

	assert.ErrorIs(t, (&PatientRecord{}).Validate(), ErrMissingPatientID)

	var missing *PatientRecord
	assert.True(t, IsValidationError(missing.Validate()))
	assert.Error(t, (&PatientRecord{PatientID: "P1", WHOStatus: &who}).Validate())
	assert.ErrorIs(t, (&PatientRecord{PatientID: "P1", Medications: []Medication{{}}}).Validate(), ErrMissingMedicationName)
	assert.Error(t, (&PatientRecord{PatientID: "P1", Medications: []Medication{{Name: "X", StartDate: &start, StopDate: &stop}}}).Validate())
	assert.NoError(t, (&PatientRecord{PatientID: "P1", Medications: []Medication{{Name: "X", StartDate: &stop, StopDate: &start}}}).Validate())
}

func TestAtcClassificationLevels(t *testing.T) {
	atc := AtcClassification{
		AnatomicalMainGroup: AtcLevel{Code: "L", Name: "Antineoplastic and immunomodulating agents"},
		TherapeuticSubGroup: AtcLevel{Code: "L01", Name: "Antineoplastic agents"},
		ChemicalSubstance:   AtcLevel{Code: "L01XE01", Name: "imatinib"},
	}

	levels := atc.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, "L", levels[0].Code)
	assert.Equal(t, "L01XE01", levels[2].Code)

	level, ok := atc.LevelForCodeLength(3)
	assert.True(t, ok)
	assert.Equal(t, "L01", level.Code)

	_, ok = atc.LevelForCodeLength(2)
	assert.False(t, ok)
}

func TestDosageHasData(t *testing.T) {
	unit := "mg"
	assert.False(t, Dosage{}.HasData())
	assert.True(t, Dosage{DosageUnit: &unit}.HasData())
}

func TestEvaluationMergeAndMessages(t *testing.T) {
	a := Evaluation{Result: PASS, PassMessages: []string{"b", "a"}}
	b := Evaluation{Result: FAIL, PassMessages: []string{"a", "c"}, FailMessages: []string{"x"}}

	merged := a.Merge(b)

	assert.Equal(t, PASS, merged.Result)
	assert.Equal(t, []string{"a", "b", "c"}, merged.PassMessages)
	assert.Equal(t, []string{"x"}, merged.FailMessages)
	assert.Nil(t, merged.WarnMessages)
	assert.Equal(t, []string{"a", "b", "c"}, merged.Messages())
}

func TestEvaluationIsExclusionary(t *testing.T) {
	assert.True(t, Evaluation{Result: FAIL}.IsExclusionary())
	assert.False(t, Evaluation{Result: FAIL, Recoverable: true}.IsExclusionary())
	assert.False(t, Evaluation{Result: UNDETERMINED}.IsExclusionary())
}
