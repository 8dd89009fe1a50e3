// Package topic decides whether a chat message belongs to the healthcare domain.
//
// Matching is plain case-insensitive substring search: "cancerous" matches
// "cancer", "learn" matches "ear", and multi-word keywords must appear
// contiguously. There is no tokenization or fuzzy matching.
package topic

import "strings"

// keywords is stored lower-case; IsInDomain lower-cases the message only.
var keywords = []string{
	"health", "doctor", "hospital", "clinic", "medicine", "treatment", "symptom", "diagnosis", "prescription",
	"medication", "wellness", "fitness", "mental health", "anxiety", "depression", "stress", "sleep",
	"pain", "fever", "headache", "cold", "flu", "cough", "infection", "virus", "bacteria", "vaccine",
	"injury", "wound", "fracture", "sprain", "bleeding", "burn", "swelling", "nausea", "vomiting", "diarrhea",
	"constipation", "stomach ache", "indigestion", "ulcer", "heart", "cardiac", "blood pressure", "hypertension",
	"cholesterol", "diabetes", "insulin", "glucose", "liver", "kidney", "lung", "respiratory", "asthma", "bronchitis",
	"pneumonia", "arthritis", "joint pain", "muscle pain", "fatigue", "cancer", "tumor", "therapy", "chemo",
	"radiation", "surgery", "operation", "x-ray", "scan", "mri", "ct scan", "blood test",
	"allergy", "rash", "itching", "skin", "eczema", "psoriasis", "acne", "hair loss", "baldness", "eye",
	"vision", "glasses", "contact lenses", "ear", "hearing", "hearing aid", "toothache", "dentist", "dental",
	"period", "menstruation", "pregnancy", "fertility", "birth control", "abortion", "childbirth", "baby", "infant",
}

// IsInDomain reports whether message contains any healthcare keyword.
func IsInDomain(message string) bool {
	text := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// MatchedKeywords returns every keyword found in message, in list order.
func MatchedKeywords(message string) []string {
	text := strings.ToLower(message)
	var out []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Keywords returns a copy of the keyword list.
func Keywords() []string {
	out := make([]string, len(keywords))
	copy(out, keywords)
	return out
}
