package reconcile

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"terminal-bridge/src/models"
)

const maxMagicSeed = 2147483647

// BotRegistry tracks running bots and the magic numbers assigned to them.
// Magic numbers are regenerated per run, so only this registry knows the
// current mapping.
type BotRegistry struct {
	mu       sync.RWMutex
	byID     map[string]models.MBotInfo
	byMagic  map[int64]string
	magicMin int64
	magicMax int64
	now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewBotRegistry(magicMin, magicMax int64) *BotRegistry {
	return &BotRegistry{
		byID:     make(map[string]models.MBotInfo),
		byMagic:  make(map[int64]string),
		magicMin: magicMin,
		magicMax: magicMax,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------

// GenerateMagicNumber derives a magic number in [magicMin, magicMax) from the
// bot id and the registration time.
func GenerateMagicNumber(botID string, at time.Time, magicMin, magicMax int64) int64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d", botID, at.Unix())))
	seed, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	seed %= maxMagicSeed
	return magicMin + seed%(magicMax-magicMin)
}

// -----------------------------------------------------------------------------

// Register adds or replaces a bot. A zero magic number is generated.
func (r *BotRegistry) Register(botID, name, strategy string, magic int64) (models.MBotInfo, error) {
	if botID == "" {
		return models.MBotInfo{}, fmt.Errorf("bot id cannot be empty")
	}
	if name == "" {
		name = defaultBotName(botID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if magic == 0 {
		magic = GenerateMagicNumber(botID, now, r.magicMin, r.magicMax)
		span := r.magicMax - r.magicMin
		for i := int64(0); i < span; i++ {
			if _, taken := r.byMagic[magic]; !taken {
				break
			}
			magic = r.magicMin + (magic-r.magicMin+1)%span
		}
	}
	if owner, taken := r.byMagic[magic]; taken && owner != botID {
		return models.MBotInfo{}, fmt.Errorf("magic number %d already assigned to %s", magic, owner)
	}

	if prev, ok := r.byID[botID]; ok {
		delete(r.byMagic, prev.MagicNumber)
	}

	info := models.MBotInfo{
		BotID:        botID,
		Name:         name,
		Strategy:     strategy,
		MagicNumber:  magic,
		RegisteredAt: now.Unix(),
	}
	r.byID[botID] = info
	r.byMagic[magic] = botID
	return info, nil
}

// -----------------------------------------------------------------------------

func (r *BotRegistry) Unregister(botID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.byID[botID]
	if !ok {
		return false
	}
	delete(r.byID, botID)
	delete(r.byMagic, info.MagicNumber)
	return true
}

// -----------------------------------------------------------------------------

// LookupMagic implements interfaces.IBotDirectory.
func (r *BotRegistry) LookupMagic(magic int64) (string, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	botID, ok := r.byMagic[magic]
	if !ok {
		return "", "", false
	}
	return botID, r.byID[botID].Name, true
}

// -----------------------------------------------------------------------------

func (r *BotRegistry) Get(botID string) (models.MBotInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byID[botID]
	return info, ok
}

func (r *BotRegistry) List() []models.MBotInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MBotInfo, 0, len(r.byID))
	for _, info := range r.byID {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BotID < out[j].BotID })
	return out
}

// -----------------------------------------------------------------------------

func defaultBotName(botID string) string {
	if i := strings.LastIndex(botID, "_"); i >= 0 && i < len(botID)-1 {
		return "Bot " + botID[i+1:]
	}
	return "Bot " + botID
}
