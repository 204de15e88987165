package rules

// EventType names an entry of the match action log.
type EventType string

const (
	EventGameStart         EventType = "gameStart"
	EventThrowCard         EventType = "throwCard"
	EventPlayCard          EventType = "playCard"
	EventFreeCardCycle     EventType = "freeCardCycle"
	EventPaidCardCycle     EventType = "paidCardCycle"
	EventEndTurn           EventType = "endTurn"
	EventAutoEndTurn       EventType = "autoEndTurn"
	EventSkipReaction      EventType = "skipReaction"
	EventSurrender         EventType = "surrender"
	EventGameOver          EventType = "gameOver"
	EventHoneypotTriggered EventType = "honeypotTriggered"
	EventEffectTriggered   EventType = "effectTriggered"
	EventChainEffect       EventType = "chainEffect"
	EventChainSkipped      EventType = "chainSkipped"
	EventHandDiscard       EventType = "handDiscard"
	EventDeckCardChosen    EventType = "deckCardChosen"
)

// IsCardPlay reports whether the entry records a card leaving the hand to
// resolve.
func (et EventType) IsCardPlay() bool {
	return et == EventThrowCard || et == EventPlayCard
}

// IsTurnEnd reports whether the entry closes a turn.
func (et EventType) IsTurnEnd() bool {
	return et == EventEndTurn || et == EventAutoEndTurn
}

// IsCardCycle reports whether the entry records a card cycle.
func (et EventType) IsCardCycle() bool {
	return et == EventFreeCardCycle || et == EventPaidCardCycle
}
