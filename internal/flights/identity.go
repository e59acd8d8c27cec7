package flights

import "fmt"

// identityIndex maps a carrier's primary identity (player name) to the flight key
// holding its record. It belongs to one namespace and is only touched under that
// namespace's lock.
//
// Invariant: for every record r in the namespace, index[r.PlayerName] == r.Key,
// and every index entry points at an existing record carrying that identity.
type identityIndex struct {
	byPlayer map[string]string
}

func newIdentityIndex() identityIndex {
	return identityIndex{byPlayer: make(map[string]string)}
}

func (ix identityIndex) lookup(player string) (string, bool) {
	key, ok := ix.byPlayer[player]
	return key, ok
}

func (ix identityIndex) bind(player, key string) {
	ix.byPlayer[player] = key
}

// unbind removes player only while it still points at key
func (ix identityIndex) unbind(player, key string) {
	if current, ok := ix.byPlayer[player]; ok && current == key {
		delete(ix.byPlayer, player)
	}
}

func (ix identityIndex) len() int {
	return len(ix.byPlayer)
}

// resolveKey returns the flight key an event for player must mutate. An existing
// binding always wins. Otherwise the first candidate (then the player identity)
// that is free or already held by player is used. A key held by another carrier
// is never taken over; that record leaves only through the reaper.
// created reports that no record exists yet under the returned key.
func (n *namespace) resolveKey(player string, candidates ...string) (key string, created bool) {
	if key, ok := n.identities.lookup(player); ok {
		return key, false
	}

	for _, c := range append(candidates, player) {
		if c == "" {
			continue
		}
		if key, created, ok := n.claim(c, player); ok {
			return key, created
		}
	}

	// Every natural key is held by someone else
	for i := 2; ; i++ {
		if key, created, ok := n.claim(fmt.Sprintf("%s-%d", player, i), player); ok {
			return key, created
		}
	}
}

// claim reports whether key can serve player. Caller holds n.mu.
func (n *namespace) claim(key, player string) (string, bool, bool) {
	existing, ok := n.records[key]
	if !ok {
		return key, true, true
	}
	if existing.PlayerName == player {
		return key, false, true
	}
	return "", false, false
}
