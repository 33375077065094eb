package entry

import (
	"fmt"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

// Gate decides whether new entrants are still accepted. A nil LastEntryLevel
// never closes.
type Gate struct {
	LastEntryLevel *int
}

// Closed reports whether the level at currentLevelIndex (0-based) is past the
// last entry level (1-based).
func (g Gate) Closed(currentLevelIndex int) bool {
	return g.LastEntryLevel != nil && currentLevelIndex+1 > *g.LastEntryLevel
}

func (g Gate) closedReason() string {
	return fmt.Sprintf("entries closed after level %d", *g.LastEntryLevel)
}

// Book applies entry and purchase actions to a ledger. Adds of players and
// entries consult the gate; removals only stop at zero.
type Book struct {
	ledger *models.Ledger
	gate   Gate
}

func NewBook(ledger *models.Ledger, gate Gate) *Book {
	return &Book{ledger: ledger, gate: gate}
}

// AddPlayer registers a new player, which also counts as an entry. A
// punctual player earns a bonus unit when bonusAvailable is true; a refused
// bonus still admits the player.
func (b *Book) AddPlayer(currentLevelIndex int, punctual, bonusAvailable bool) models.Result {
	if b.gate.Closed(currentLevelIndex) {
		return models.Rejected(b.gate.closedReason())
	}
	b.ledger.Players++
	b.ledger.TotalPlayersEverEntered++
	b.ledger.Entries++

	if punctual {
		if !bonusAvailable {
			return models.Result{OK: true, Reason: "punctuality bonus no longer available"}
		}
		b.ledger.PunctualityBonusPlayers++
	}
	return models.Accepted()
}

func (b *Book) RemovePlayer() models.Result {
	return decrement(&b.ledger.Players, "no players to remove")
}

// AddEntry records a re-entry.
func (b *Book) AddEntry(currentLevelIndex int) models.Result {
	if b.gate.Closed(currentLevelIndex) {
		return models.Rejected(b.gate.closedReason())
	}
	b.ledger.Entries++
	return models.Accepted()
}

func (b *Book) RemoveEntry() models.Result {
	return decrement(&b.ledger.Entries, "no entries to remove")
}

func (b *Book) AddAddon() models.Result {
	b.ledger.Addons++
	return models.Accepted()
}

func (b *Book) RemoveAddon() models.Result {
	return decrement(&b.ledger.Addons, "no add-ons to remove")
}

func (b *Book) AddDoubleAddon() models.Result {
	b.ledger.DoubleAddons++
	return models.Accepted()
}

func (b *Book) RemoveDoubleAddon() models.Result {
	return decrement(&b.ledger.DoubleAddons, "no double add-ons to remove")
}

func decrement(n *int, reason string) models.Result {
	if *n <= 0 {
		return models.Rejected(reason)
	}
	*n--
	return models.Accepted()
}

// Sanitize clamps every counter of a restored ledger to zero or more and
// keeps TotalPlayersEverEntered at least Players.
func Sanitize(l models.Ledger) models.Ledger {
	for _, n := range []*int{&l.Players, &l.TotalPlayersEverEntered, &l.Entries, &l.Addons, &l.DoubleAddons, &l.PunctualityBonusPlayers} {
		if *n < 0 {
			*n = 0
		}
	}
	l.TotalPlayersEverEntered = max(l.TotalPlayersEverEntered, l.Players)
	return l
}
