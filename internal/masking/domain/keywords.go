package domain

// MedicalKeywords is the fixed vocabulary of sensitive medical terms the
// masking engine substitutes before text leaves the process. Multi-word terms
// are matched longest-first so they are never shadowed by their substrings.
// All matching is case-insensitive; entries here are lowercase by convention.
var MedicalKeywords = []string{
	// General fertility
	"fertility", "infertility", "sterile", "sterility", "conceive", "conception",
	"pregnant", "pregnancy", "miscarriage", "abortion", "baby", "birth",
	"ivf", "iui", "icsi", "art", "assisted reproduction", "fetus", "embryo",

	// Female health
	"period", "menstruation", "menstrual", "bleeding", "ovulation", "ovary", "ovarian",
	"uterus", "uterine", "fallopian", "tube", "egg", "oocyte", "follicle",
	"pcos", "pcod", "endometriosis", "fibroid", "cyst", "polycystic",
	"vaginal", "vagina", "cervix", "cervical", "discharge", "mucus",

	// Male health
	"sperm", "semen", "count", "motility", "morphology", "testis", "testicle",
	"erection", "ejaculation", "erectile", "scrotum",

	// Hormones
	"hormone", "fsh", "lh", "amh", "progesterone", "estrogen", "testosterone",
	"thyroid", "tsh", "prolactin",

	// Procedures
	"scan", "ultrasound", "injection", "test", "biopsy", "laparoscopy",
	"hysteroscopy", "medication", "pill", "tablet", "dosage", "doctor",
	"gynecologist", "treatment", "clinic", "hospital", "cost", "price",

	// Symptoms
	"pain", "cramp", "nausea", "vomiting", "headache", "bloating", "swelling",
	"weight gain", "weight loss", "hair fall", "acne",
}
