package websocket

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownEvent - в ?events указан несуществующий тип
var ErrUnknownEvent = errors.New("unknown event type")

// event - сериализованное сообщение с метаданными для фильтрации
type event struct {
	kind    MessageType // пусто = без типа, получают все
	account string      // пусто = событие не относится к счёту
	data    []byte
}

// Subscription - фильтр событий клиента, задаётся query-параметрами /ws/stream
//
//	?events=liquidation,notification  только указанные типы
//	?account=<address>                только события этого счёта
//
// Итоги циклов и уведомления без счёта (CYCLE_ABORTED) фильтр по счёту пропускает.
type Subscription struct {
	types   map[MessageType]struct{} // nil = все типы
	account string
}

var knownEvents = map[MessageType]struct{}{
	MessageTypeCycle:        {},
	MessageTypeLiquidation:  {},
	MessageTypeNotification: {},
}

// ParseSubscription разбирает query-параметры подключения
func ParseSubscription(q url.Values) (Subscription, error) {
	sub := Subscription{account: strings.TrimSpace(q.Get("account"))}

	if raw := q.Get("events"); raw != "" {
		sub.types = make(map[MessageType]struct{})
		for _, part := range strings.Split(raw, ",") {
			kind := MessageType(strings.ToLower(strings.TrimSpace(part)))
			if kind == "" {
				continue
			}
			if _, ok := knownEvents[kind]; !ok {
				return Subscription{}, fmt.Errorf("%w: %s", ErrUnknownEvent, kind)
			}
			sub.types[kind] = struct{}{}
		}
	}
	return sub, nil
}

// Accepts решает, получает ли клиент событие
func (s Subscription) Accepts(ev event) bool {
	if s.types != nil && ev.kind != "" {
		if _, ok := s.types[ev.kind]; !ok {
			return false
		}
	}
	if s.account != "" && ev.account != "" && ev.account != s.account {
		return false
	}
	return true
}
