package monitor

import "github.com/launchrlabs/launchwatch/internal/domain"

// cooldownKey builds the throttle key for an alert. Launch-less alerts fall
// under "global", trader-less alerts under "all", so two alerts of the same
// type for different launches or traders never suppress each other.
func cooldownKey(a domain.Alert) string {
	launch := a.LaunchID
	if launch == "" {
		launch = "global"
	}
	trader := a.Trader
	if trader == "" {
		trader = "all"
	}
	return string(a.Type) + "|" + launch + "|" + trader
}

// admit applies the alert cooldown: the first alert for a key is admitted and
// stamps the key, later ones inside the cooldown are suppressed. Caller holds
// the write lock.
func (m *Monitor) admit(a domain.Alert) bool {
	key := cooldownKey(a)
	now := m.now()
	if last, ok := m.throttle[key]; ok && now.Sub(last) < m.cfg.AlertCooldown {
		return false
	}
	m.throttle[key] = now
	return true
}
