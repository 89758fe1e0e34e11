package sets

import "time"

// Event represents a lifecycle event emitted by a session. Events are
// delivered to the single subscribed listener in emission order.
type Event interface {
	sessionEvent()
}

// SessionStarted is emitted once when the session starts, before the
// initial market deal.
type SessionStarted struct{}

func (SessionStarted) sessionEvent() {}

// PlayerBanned is emitted when a player is suspended for claiming an
// invalid set. Timeout is the full duration of the ban.
type PlayerBanned struct {
	Player  *Player
	Timeout time.Duration
}

func (PlayerBanned) sessionEvent() {}

// PlayerUnbanned is emitted when a player's ban elapses.
type PlayerUnbanned struct {
	Player *Player
}

func (PlayerUnbanned) sessionEvent() {}

// MarketFilled is emitted whenever the face-up market changes: the
// initial deal, refills after a claim, and extensions when no set is
// present. Card positions from before this event are no longer valid.
type MarketFilled struct{}

func (MarketFilled) sessionEvent() {}

// MarketGrab is emitted when a player successfully claims a set from
// the market. Scores have changed by the time it is delivered.
type MarketGrab struct{}

func (MarketGrab) sessionEvent() {}

// SessionFinished is emitted once, when the deck is exhausted and the
// market holds no further set. Winners are available from this point.
type SessionFinished struct{}

func (SessionFinished) sessionEvent() {}
