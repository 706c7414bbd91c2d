// Package pushsvc delivers decision notifications to the applicant's
// registered device contact token.
package pushsvc

import (
	"log"
	"sync"

	"github.com/kymanga/ruzuku/core"
)

type Notification struct {
	ContactToken string
	Title        string
	Body         string
}

type consoleService struct {
	mu            sync.Mutex
	sent          []Notification
	disableOutput bool
}

var _ core.PushService = (*consoleService)(nil)

func NewConsoleService() *consoleService {
	return &consoleService{}
}

func NewConsoleServiceMock() *consoleService {
	return &consoleService{disableOutput: true}
}

func (svc *consoleService) Notify(contactToken, title, body string) {
	if contactToken == "" {
		return
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, Notification{ContactToken: contactToken, Title: title, Body: body})
	svc.mu.Unlock()
	if !svc.disableOutput {
		log.Printf("push [%s] %s: %s\n", contactToken, title, body)
	}
}

// SentNotifications returns a copy of everything delivered so far.
func (svc *consoleService) SentNotifications() []Notification {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sent := make([]Notification, len(svc.sent))
	copy(sent, svc.sent)
	return sent
}
