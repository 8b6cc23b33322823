// Package rules holds the eligibility rule catalogue, the medication and
// patient evaluation functions, and the Mapper that binds a rule and its
// parameters to an evaluation.Function.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trial-eligibility-server/internal/domain"
)

// EligibilityRule identifies one eligibility criterion.
type EligibilityRule string

// Composite rules.
const (
	AND     EligibilityRule = "AND"
	OR      EligibilityRule = "OR"
	NOT     EligibilityRule = "NOT"
	WARN_IF EligibilityRule = "WARN_IF"
)

// Patient detail rules.
const (
	IS_AT_LEAST_X_YEARS_OLD     EligibilityRule = "IS_AT_LEAST_X_YEARS_OLD"
	HAS_WHO_STATUS_OF_AT_MOST_X EligibilityRule = "HAS_WHO_STATUS_OF_AT_MOST_X"
	IS_MALE                     EligibilityRule = "IS_MALE"
	IS_FEMALE                   EligibilityRule = "IS_FEMALE"
)

// Medication rules.
const (
	CURRENTLY_GETS_MEDICATION_OF_NAME_X                      EligibilityRule = "CURRENTLY_GETS_MEDICATION_OF_NAME_X"
	CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X                  EligibilityRule = "CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X"
	CURRENTLY_GETS_MEDICATION_OF_EXACT_CATEGORY_X            EligibilityRule = "CURRENTLY_GETS_MEDICATION_OF_EXACT_CATEGORY_X"
	CURRENTLY_GETS_STABLE_MEDICATION_OF_CATEGORY_X           EligibilityRule = "CURRENTLY_GETS_STABLE_MEDICATION_OF_CATEGORY_X"
	HAS_RECEIVED_MEDICATION_OF_CATEGORY_X_WITHIN_Y_WEEKS     EligibilityRule = "HAS_RECEIVED_MEDICATION_OF_CATEGORY_X_WITHIN_Y_WEEKS"
	HAS_RECEIVED_TRIAL_MEDICATION_WITHIN_X_WEEKS             EligibilityRule = "HAS_RECEIVED_TRIAL_MEDICATION_WITHIN_X_WEEKS"
	CURRENTLY_GETS_ANY_CYP_INDUCING_MEDICATION               EligibilityRule = "CURRENTLY_GETS_ANY_CYP_INDUCING_MEDICATION"
	CURRENTLY_GETS_ANY_CYP_INDUCING_OR_INHIBITING_MEDICATION EligibilityRule = "CURRENTLY_GETS_ANY_CYP_INDUCING_OR_INHIBITING_MEDICATION"
	CURRENTLY_GETS_CYP_X_INDUCING_MEDICATION                 EligibilityRule = "CURRENTLY_GETS_CYP_X_INDUCING_MEDICATION"
	CURRENTLY_GETS_CYP_X_INHIBITING_MEDICATION               EligibilityRule = "CURRENTLY_GETS_CYP_X_INHIBITING_MEDICATION"
	CURRENTLY_GETS_CYP_X_INHIBITING_OR_INDUCING_MEDICATION   EligibilityRule = "CURRENTLY_GETS_CYP_X_INHIBITING_OR_INDUCING_MEDICATION"
	CURRENTLY_GETS_CYP_X_SUBSTRATE_MEDICATION                EligibilityRule = "CURRENTLY_GETS_CYP_X_SUBSTRATE_MEDICATION"
	HAS_RECEIVED_CYP_X_INDUCING_MEDICATION_WITHIN_Y_WEEKS    EligibilityRule = "HAS_RECEIVED_CYP_X_INDUCING_MEDICATION_WITHIN_Y_WEEKS"
	CURRENTLY_GETS_TRANSPORTER_X_SUBSTRATE_MEDICATION        EligibilityRule = "CURRENTLY_GETS_TRANSPORTER_X_SUBSTRATE_MEDICATION"
	CURRENTLY_GETS_PGP_SUBSTRATE_MEDICATION                  EligibilityRule = "CURRENTLY_GETS_PGP_SUBSTRATE_MEDICATION"
	CURRENTLY_GETS_PGP_INHIBITING_MEDICATION                 EligibilityRule = "CURRENTLY_GETS_PGP_INHIBITING_MEDICATION"
	CURRENTLY_GETS_BCRP_SUBSTRATE_MEDICATION                 EligibilityRule = "CURRENTLY_GETS_BCRP_SUBSTRATE_MEDICATION"
	CURRENTLY_GETS_BCRP_INHIBITING_MEDICATION                EligibilityRule = "CURRENTLY_GETS_BCRP_INHIBITING_MEDICATION"
	CURRENTLY_GETS_BCRP_INDUCING_MEDICATION                  EligibilityRule = "CURRENTLY_GETS_BCRP_INDUCING_MEDICATION"
	CURRENTLY_GETS_OATP1B1_OR_OATP1B3_SUBSTRATE_MEDICATION   EligibilityRule = "CURRENTLY_GETS_OATP1B1_OR_OATP1B3_SUBSTRATE_MEDICATION"
	CURRENTLY_GETS_QT_PROLONGATING_MEDICATION                EligibilityRule = "CURRENTLY_GETS_QT_PROLONGATING_MEDICATION"
)

// Molecular and IHC rules. These are not decidable from the curated
// medication record and evaluate to UNDETERMINED.
const (
	PROTEIN_X_IS_EXPRESSED_BY_IHC             EligibilityRule = "PROTEIN_X_IS_EXPRESSED_BY_IHC"
	PROTEIN_X_EXPRESSION_BY_IHC_OF_AT_LEAST_Y EligibilityRule = "PROTEIN_X_EXPRESSION_BY_IHC_OF_AT_LEAST_Y"
	PD_L1_SCORE_CPS_OF_AT_LEAST_X             EligibilityRule = "PD_L1_SCORE_CPS_OF_AT_LEAST_X"
	PD_L1_SCORE_TPS_OF_AT_MOST_X              EligibilityRule = "PD_L1_SCORE_TPS_OF_AT_MOST_X"
	HER2_SCORE_BY_IHC_OF_AT_LEAST_X           EligibilityRule = "HER2_SCORE_BY_IHC_OF_AT_LEAST_X"
	MMR_PROTEIN_EXPRESSION_DEFICIENT_BY_IHC   EligibilityRule = "MMR_PROTEIN_EXPRESSION_DEFICIENT_BY_IHC"
)

// FunctionInput is the parameter shape a rule expects.
type FunctionInput string

const (
	InputNone                            FunctionInput = "NONE"
	InputOneInteger                      FunctionInput = "ONE_INTEGER"
	InputOneString                       FunctionInput = "ONE_STRING"
	InputManyStrings                     FunctionInput = "MANY_STRINGS"
	InputOneCyp                          FunctionInput = "ONE_CYP"
	InputOneCypOneInteger                FunctionInput = "ONE_CYP_ONE_INTEGER"
	InputOneTransporter                  FunctionInput = "ONE_TRANSPORTER"
	InputOneMedicationCategory           FunctionInput = "ONE_MEDICATION_CATEGORY"
	InputOneMedicationCategoryOneInteger FunctionInput = "ONE_MEDICATION_CATEGORY_ONE_INTEGER"
	InputOneProteinOneInteger            FunctionInput = "ONE_PROTEIN_ONE_INTEGER"
	InputOneCompositeInput               FunctionInput = "ONE_COMPOSITE_INPUT"
	InputAtLeastTwoCompositeInputs       FunctionInput = "AT_LEAST_TWO_COMPOSITE_INPUTS"
)

// IsComposite reports whether the shape takes child functions instead of
// plain parameters.
func (f FunctionInput) IsComposite() bool {
	return f == InputOneCompositeInput || f == InputAtLeastTwoCompositeInputs
}

// RuleDef is the static metadata of a rule.
type RuleDef struct {
	Input       FunctionInput
	// Protein is the IHC protein a protein-expression rule is about.
	Protein     string
	Description string
}

var catalogue = map[EligibilityRule]RuleDef{
	AND:     {Input: InputAtLeastTwoCompositeInputs, Description: "All criteria must be met"},
	OR:      {Input: InputAtLeastTwoCompositeInputs, Description: "At least one criterion must be met"},
	NOT:     {Input: InputOneCompositeInput, Description: "Criterion must not be met"},
	WARN_IF: {Input: InputOneCompositeInput, Description: "Meeting the criterion raises a warning"},

	IS_AT_LEAST_X_YEARS_OLD:     {Input: InputOneInteger, Description: "Patient is at least X years old"},
	HAS_WHO_STATUS_OF_AT_MOST_X: {Input: InputOneInteger, Description: "Patient has WHO performance status of at most X"},
	IS_MALE:                     {Input: InputNone, Description: "Patient is male"},
	IS_FEMALE:                   {Input: InputNone, Description: "Patient is female"},

	CURRENTLY_GETS_MEDICATION_OF_NAME_X:                      {Input: InputManyStrings, Description: "Patient currently gets medication with any of the given names"},
	CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X:                  {Input: InputOneMedicationCategory, Description: "Patient currently gets medication of category X"},
	CURRENTLY_GETS_MEDICATION_OF_EXACT_CATEGORY_X:            {Input: InputOneMedicationCategory, Description: "Patient currently gets medication classified exactly in category X"},
	CURRENTLY_GETS_STABLE_MEDICATION_OF_CATEGORY_X:           {Input: InputOneMedicationCategory, Description: "Patient currently gets medication of category X on a stable dosing"},
	HAS_RECEIVED_MEDICATION_OF_CATEGORY_X_WITHIN_Y_WEEKS:     {Input: InputOneMedicationCategoryOneInteger, Description: "Patient received medication of category X within the last Y weeks"},
	HAS_RECEIVED_TRIAL_MEDICATION_WITHIN_X_WEEKS:             {Input: InputOneInteger, Description: "Patient received trial medication within the last X weeks"},
	CURRENTLY_GETS_ANY_CYP_INDUCING_MEDICATION:               {Input: InputNone, Description: "Patient currently gets a CYP inducer"},
	CURRENTLY_GETS_ANY_CYP_INDUCING_OR_INHIBITING_MEDICATION: {Input: InputNone, Description: "Patient currently gets a CYP inducer or inhibitor"},
	CURRENTLY_GETS_CYP_X_INDUCING_MEDICATION:                 {Input: InputOneCyp, Description: "Patient currently gets a CYP X inducer"},
	CURRENTLY_GETS_CYP_X_INHIBITING_MEDICATION:               {Input: InputOneCyp, Description: "Patient currently gets a CYP X inhibitor"},
	CURRENTLY_GETS_CYP_X_INHIBITING_OR_INDUCING_MEDICATION:   {Input: InputOneCyp, Description: "Patient currently gets a CYP X inhibitor or inducer"},
	CURRENTLY_GETS_CYP_X_SUBSTRATE_MEDICATION:                {Input: InputOneCyp, Description: "Patient currently gets a CYP X substrate"},
	HAS_RECEIVED_CYP_X_INDUCING_MEDICATION_WITHIN_Y_WEEKS:    {Input: InputOneCypOneInteger, Description: "Patient received a CYP X inducer within the last Y weeks"},
	CURRENTLY_GETS_TRANSPORTER_X_SUBSTRATE_MEDICATION:        {Input: InputOneTransporter, Description: "Patient currently gets a substrate of transporter X"},
	CURRENTLY_GETS_PGP_SUBSTRATE_MEDICATION:                  {Input: InputNone, Description: "Patient currently gets a P-gp substrate"},
	CURRENTLY_GETS_PGP_INHIBITING_MEDICATION:                 {Input: InputNone, Description: "Patient currently gets a P-gp inhibitor"},
	CURRENTLY_GETS_BCRP_SUBSTRATE_MEDICATION:                 {Input: InputNone, Description: "Patient currently gets a BCRP substrate"},
	CURRENTLY_GETS_BCRP_INHIBITING_MEDICATION:                {Input: InputNone, Description: "Patient currently gets a BCRP inhibitor"},
	CURRENTLY_GETS_BCRP_INDUCING_MEDICATION:                  {Input: InputNone, Description: "Patient currently gets a BCRP inducer"},
	CURRENTLY_GETS_OATP1B1_OR_OATP1B3_SUBSTRATE_MEDICATION:   {Input: InputNone, Description: "Patient currently gets an OATP1B1 or OATP1B3 substrate"},
	CURRENTLY_GETS_QT_PROLONGATING_MEDICATION:                {Input: InputNone, Description: "Patient currently gets QT prolongating medication"},

	PROTEIN_X_IS_EXPRESSED_BY_IHC:             {Input: InputOneString, Description: "Protein X is expressed by IHC"},
	PROTEIN_X_EXPRESSION_BY_IHC_OF_AT_LEAST_Y: {Input: InputOneProteinOneInteger, Description: "Protein X expression by IHC is at least Y"},
	PD_L1_SCORE_CPS_OF_AT_LEAST_X:             {Input: InputOneInteger, Protein: "PD-L1", Description: "PD-L1 combined positive score of at least X"},
	PD_L1_SCORE_TPS_OF_AT_MOST_X:              {Input: InputOneInteger, Protein: "PD-L1", Description: "PD-L1 tumor proportion score of at most X"},
	HER2_SCORE_BY_IHC_OF_AT_LEAST_X:           {Input: InputOneInteger, Protein: "HER2", Description: "HER2 IHC score of at least X"},
	MMR_PROTEIN_EXPRESSION_DEFICIENT_BY_IHC:   {Input: InputNone, Protein: "MMR", Description: "Loss of mismatch repair protein expression by IHC"},
}

// Definition returns the catalogue entry of the rule.
func (r EligibilityRule) Definition() (RuleDef, bool) {
	def, ok := catalogue[r]
	return def, ok
}

// Input returns the parameter shape of the rule, or an empty shape for an
// unknown rule.
func (r EligibilityRule) Input() FunctionInput {
	return catalogue[r].Input
}

// IsComposite reports whether the rule combines other functions.
func (r EligibilityRule) IsComposite() bool {
	return r.Input().IsComposite()
}

// ParseRule looks up a rule by name, ignoring case and surrounding space.
func ParseRule(name string) (EligibilityRule, error) {
	rule := EligibilityRule(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := catalogue[rule]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownRule, name)
	}
	return rule, nil
}

// RuleInfo describes a catalogue entry for listings.
type RuleInfo struct {
	Rule        EligibilityRule `json:"rule"`
	Input       FunctionInput   `json:"input"`
	Protein     string          `json:"protein,omitempty"`
	Description string          `json:"description"`
}

// Catalogue returns every known rule ordered by name.
func Catalogue() []RuleInfo {
	infos := make([]RuleInfo, 0, len(catalogue))
	for rule, def := range catalogue {
		infos = append(infos, RuleInfo{Rule: rule, Input: def.Input, Protein: def.Protein, Description: def.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Rule < infos[j].Rule })
	return infos
}
