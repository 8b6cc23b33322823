package atc

// DefaultTreeEntries is the subset of the WHO ATC index shipped with the
// server. It covers the codes referenced by DefaultCategories and the
// medications commonly seen in oncology trial screening.
var DefaultTreeEntries = map[string]string{
	"A":       "ALIMENTARY TRACT AND METABOLISM",
	"A02":     "DRUGS FOR ACID RELATED DISORDERS",
	"A02B":    "DRUGS FOR PEPTIC ULCER AND GASTRO-OESOPHAGEAL REFLUX DISEASE (GORD)",
	"A02BC":   "Proton pump inhibitors",
	"A02BC01": "omeprazole",
	"A02BC05": "esomeprazole",
	"B":       "BLOOD AND BLOOD FORMING ORGANS",
	"B01":     "ANTITHROMBOTIC AGENTS",
	"B01A":    "ANTITHROMBOTIC AGENTS",
	"B01AA":   "Vitamin K antagonists",
	"B01AA03": "warfarin",
	"B01AA04": "phenprocoumon",
	"B01AB":   "Heparin group",
	"B01AB05": "enoxaparin",
	"B01AC":   "Platelet aggregation inhibitors excl. heparin",
	"B01AC06": "acetylsalicylic acid",
	"B01AE":   "Direct thrombin inhibitors",
	"B01AE07": "dabigatran etexilate",
	"B01AF":   "Direct factor Xa inhibitors",
	"B01AF01": "rivaroxaban",
	"B01AF02": "apixaban",
	"C":       "CARDIOVASCULAR SYSTEM",
	"C01":     "CARDIAC THERAPY",
	"C01B":    "ANTIARRHYTHMICS, CLASS I AND III",
	"C01BD":   "Antiarrhythmics, class III",
	"C01BD01": "amiodarone",
	"H":       "SYSTEMIC HORMONAL PREPARATIONS, EXCL. SEX HORMONES AND INSULINS",
	"H01":     "PITUITARY AND HYPOTHALAMIC HORMONES AND ANALOGUES",
	"H01C":    "HYPOTHALAMIC HORMONES",
	"H01CA":   "Gonadotropin-releasing hormones",
	"H02":     "CORTICOSTEROIDS FOR SYSTEMIC USE",
	"H02A":    "CORTICOSTEROIDS FOR SYSTEMIC USE, PLAIN",
	"H02AB":   "Glucocorticoids",
	"H02AB02": "dexamethasone",
	"H02AB06": "prednisolone",
	"H05":     "CALCIUM HOMEOSTASIS",
	"J":       "ANTIINFECTIVES FOR SYSTEMIC USE",
	"J01":     "ANTIBACTERIALS FOR SYSTEMIC USE",
	"J02":     "ANTIMYCOTICS FOR SYSTEMIC USE",
	"J02A":    "ANTIMYCOTICS FOR SYSTEMIC USE",
	"J02AC":   "Triazole derivatives",
	"J02AC02": "itraconazole",
	"J04":     "ANTIMYCOBACTERIALS",
	"J04A":    "DRUGS FOR TREATMENT OF TUBERCULOSIS",
	"J04AB":   "Antibiotics",
	"J04AB02": "rifampicin",
	"L":       "ANTINEOPLASTIC AND IMMUNOMODULATING AGENTS",
	"L01":     "ANTINEOPLASTIC AGENTS",
	"L01E":    "PROTEIN KINASE INHIBITORS",
	"L01EA":   "BCR-ABL tyrosine kinase inhibitors",
	"L01EA01": "imatinib",
	"L01F":    "MONOCLONAL ANTIBODIES AND ANTIBODY DRUG CONJUGATES",
	"L01FF":   "PD-1/PDL-1 (Programmed cell death protein 1/death ligand 1) inhibitors",
	"L01FF02": "pembrolizumab",
	"L02":     "ENDOCRINE THERAPY",
	"L02A":    "HORMONES AND RELATED AGENTS",
	"L02AE":   "Gonadotropin releasing hormone analogues",
	"L02AE02": "leuprorelin",
	"L02B":    "HORMONE ANTAGONISTS AND RELATED AGENTS",
	"L02BA":   "Anti-estrogens",
	"L02BA01": "tamoxifen",
	"L03":     "IMMUNOSTIMULANTS",
	"L03A":    "IMMUNOSTIMULANTS",
	"L03AA":   "Colony stimulating factors",
	"L03AA02": "filgrastim",
	"L04":     "IMMUNOSUPPRESSANTS",
	"M":       "MUSCULO-SKELETAL SYSTEM",
	"M05":     "DRUGS FOR TREATMENT OF BONE DISEASES",
	"M05B":    "DRUGS AFFECTING BONE STRUCTURE AND MINERALIZATION",
	"M05BA":   "Bisphosphonates",
	"M05BA08": "zoledronic acid",
	"M05BX":   "Other drugs affecting bone structure and mineralization",
	"M05BX04": "denosumab",
	"N":       "NERVOUS SYSTEM",
	"N02":     "ANALGESICS",
	"N02A":    "OPIOIDS",
	"N02AB":   "Phenylpiperidine derivatives",
	"N02AB03": "fentanyl",
	"N03":     "ANTIEPILEPTICS",
	"N03A":    "ANTIEPILEPTICS",
	"N03AF":   "Carboxamide derivatives",
	"N03AF01": "carbamazepine",
}

// DefaultCategories maps curated category names to the ATC codes they cover.
var DefaultCategories = map[string][]string{
	"Anticoagulants":             {"B01AA", "B01AB", "B01AE", "B01AF", "B01AX"},
	"Antiepileptics":             {"N03"},
	"Antineoplastic agents":      {"L01"},
	"Antiplatelet agents":        {"B01AC"},
	"Azole antimycotics":         {"J02AC"},
	"Bisphosphonates":            {"M05BA", "M05BB"},
	"Bone resorptive":            {"H05", "M05B"},
	"Colony stimulating factors": {"L03AA"},
	"Corticosteroids":            {"H02"},
	"Coumarin derivative":        {"B01AA"},
	"Endocrine therapy":          {"L02"},
	"Gonadorelin":                {"H01CA", "L02AE"},
	"Immunosuppressants":         {"L04"},
	"Opioids":                    {"N02A"},
	"Proton pump inhibitors":     {"A02BC"},
}

// NewDefaultTree returns a tree over DefaultTreeEntries.
func NewDefaultTree() *Tree {
	return NewTree(DefaultTreeEntries)
}
