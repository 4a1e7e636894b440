package nakama

const (
	// MatchNameCulpritDance is the authoritative match handler name
	// registered with the runtime.
	MatchNameCulpritDance = "culpritdance"

	// MatchLabelKeyOpenSeats is the label key match listing filters on.
	MatchLabelKeyOpenSeats = "open"

	// Storage collections. Room documents and the hall of fame are owned
	// by the system user so every client can read them.
	CollectionRooms      = "rooms"
	CollectionHallOfFame = "hall_of_fame"
	KeyHallOfFame        = "recent"
)
