package proxy

import (
	"errors"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrNoProxiesAvailable = errors.New("no proxy URLs available")

// Manager spreads downloads over a list of proxies, round robin.
type Manager struct {
	proxies      []*url.URL
	currentIndex int
	mutex        sync.Mutex
}

func NewManager(proxyStrings []string, log *logrus.Logger) (*Manager, error) {
	var proxies []*url.URL
	for _, p := range proxyStrings {
		if p == "" {
			continue
		}
		proxyURL, err := url.Parse(p)
		if err != nil || proxyURL.Host == "" {
			log.Warnf("Could not parse proxy URL '%s', skipping: %v", p, err)
			continue
		}
		proxies = append(proxies, proxyURL)
	}

	if len(proxies) == 0 {
		return nil, ErrNoProxiesAvailable
	}
	return &Manager{proxies: proxies}, nil
}

// Next returns the proxy to use for this download and advances the cursor.
// A nil manager has no proxies and returns nil.
func (pm *Manager) Next() *url.URL {
	if pm == nil {
		return nil
	}
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	p := pm.proxies[pm.currentIndex]
	pm.currentIndex = (pm.currentIndex + 1) % len(pm.proxies)
	return p
}

func (pm *Manager) Len() int {
	if pm == nil {
		return 0
	}
	return len(pm.proxies)
}
