package content

// Kind identifies the payload type of a single submission part.
type Kind int

const (
	KindText Kind = iota
	KindPhoto
	KindVideo
	KindAnimation
	KindAudio
	KindVoice
	KindDocument
	KindSticker
)

// String returns the lowercase name used in logs and review cards.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindAnimation:
		return "animation"
	case KindAudio:
		return "audio"
	case KindVoice:
		return "voice"
	case KindDocument:
		return "document"
	case KindSticker:
		return "sticker"
	}
	return "unknown"
}

// Albumable reports whether the kind may appear inside a Telegram media group.
func (k Kind) Albumable() bool {
	return k == KindPhoto || k == KindVideo
}

// Part is one unit of submitted payload. For KindText the payload lives in
// Text; every other kind carries a Telegram file id plus an optional caption.
// Sequence is the arrival order key (origin message id) used to keep album
// parts ordered.
type Part struct {
	Kind     Kind
	FileID   string
	Text     string
	Caption  string
	Spoiler  bool
	Sequence int
}
