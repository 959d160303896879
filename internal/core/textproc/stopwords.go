package textproc

// stopWords holds function words in their normalized form. Arabic entries are
// folded the same way Normalize folds text so lookups work on tokens.
var stopWords = buildStopWords(
	// Arabic
	"في", "من", "إلى", "على", "عن", "مع", "هذا", "هذه", "ذلك", "تلك",
	"التي", "الذي", "اللذان", "اللتان", "اللذين", "اللتين",
	"هو", "هي", "هم", "هن", "أنت", "أنتم", "أنتن", "أنا", "نحن",
	"كان", "كانت", "كانوا", "كن", "يكون", "تكون", "يكونوا", "تكن",
	"قد", "لقد", "قال", "قالت", "قالوا", "قلن", "يقول", "تقول",
	"أن", "إن", "كي", "لكي", "حتى", "لو", "إذا", "إذ", "بعد", "قبل",
	"أم", "أو", "لكن", "غير", "سوى", "عدا", "خلا", "حاشا", "ليس",
	"ما", "لا", "لم", "لن", "كل", "بعض", "جميع", "كلا", "كلتا",
	"ماذا", "متى", "أين", "كيف", "لماذا", "كم", "هل",
	// English
	"the", "a", "an", "be", "is", "are", "was", "were", "to", "of", "and",
	"in", "that", "have", "has", "had", "it", "its", "for", "not", "on",
	"with", "as", "you", "do", "does", "did", "at", "this", "but", "by",
	"from", "or", "what", "which", "who", "whom", "when", "where", "why",
	"how", "many", "much",
)

func buildStopWords(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[Normalize(w)] = struct{}{}
	}
	return out
}

// IsStopWord reports whether a normalized token is a function word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
