package caller

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shamank/apicaller-go/pkg/jsonrpc"
	"github.com/shamank/apicaller-go/pkg/model"
)

// Conn is the part of a daemon connection AppCaller depends on.
// *jsonrpc.Conn satisfies it.
type Conn interface {
	Request(ctx context.Context, method string, params, result any) error
	Subscribe(fn func(jsonrpc.Notification)) (unsubscribe func())
}

// update is one unit of work for the event loop: a reducer event, an
// address change, or both. A synced update marks the end of the status
// response.
type update struct {
	event   Event
	addr    string
	hasAddr bool
	synced  bool
}

// AppCaller follows one application over a daemon connection and keeps its
// endpoint selection up to date.
type AppCaller struct {
	appID string
	conn  Conn
	opts  options
	log   *zap.Logger

	updates chan update
	selects chan struct{}
	stop    chan struct{}
	synced  chan struct{}
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	mu           sync.RWMutex
	state        State
	addr         string
	listeners    []listener
	listenerSeq  uint64
	pending      *string
	unsubscribe  func()
	cancelStatus context.CancelFunc
}

type listener struct {
	id uint64
	fn func(View)
}

// New creates an AppCaller for appID. It does nothing until Start.
func New(appID string, conn Conn, opts ...Option) *AppCaller {
	o := newOptions(opts)
	return &AppCaller{
		appID: appID,
		conn:  conn,
		opts:  o,
		log: o.logger.With(
			zap.String("app_id", appID),
			zap.String("session", uuid.NewString()),
		),
		updates: make(chan update, o.buffer),
		selects: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		synced:  make(chan struct{}),
		addr:    o.defaultAddr,
	}
}

// AppID returns the application this caller follows.
func (a *AppCaller) AppID() string {
	return a.appID
}

// Start subscribes to notifications and requests the current status of the
// application. The status request is bound to ctx and to the caller's
// lifetime. Calling Start more than once, or after Stop, has no effect.
func (a *AppCaller) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		select {
		case <-a.stop:
			return
		default:
		}

		a.wg.Add(1)
		go a.loop()

		unsubscribe := a.conn.Subscribe(a.onNotify)

		var (
			reqCtx context.Context
			cancel context.CancelFunc
		)
		if a.opts.statusTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, a.opts.statusTimeout)
		} else {
			reqCtx, cancel = context.WithCancel(ctx)
		}

		a.mu.Lock()
		a.unsubscribe = unsubscribe
		a.cancelStatus = cancel
		a.mu.Unlock()

		a.wg.Add(1)
		go a.fetchStatus(reqCtx)
	})
}

// Stop detaches from the notification stream, abandons the status request
// and stops the event loop. Nothing is applied to the state once Stop
// returns. Stop is idempotent.
func (a *AppCaller) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		unsubscribe, cancel := a.unsubscribe, a.cancelStatus
		a.unsubscribe, a.cancelStatus = nil, nil
		a.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		close(a.stop)
		if cancel != nil {
			cancel()
		}
		a.wg.Wait()
		a.log.Debug("caller stopped")
	})
}

// Synced is closed once the outcome of the initial status request, success
// or failure, has been applied.
func (a *AppCaller) Synced() <-chan struct{} {
	return a.synced
}

// Select selects the entry called name. Unknown names are ignored. Select
// never blocks: when the event queue is full only the latest pending
// selection is kept. It is safe to call from an OnChange listener and
// before Start.
func (a *AppCaller) Select(name string) {
	select {
	case <-a.stop:
		return
	default:
	}

	a.mu.Lock()
	if a.pending == nil {
		select {
		case a.updates <- update{event: UserSelected{Name: name}}:
			a.mu.Unlock()
			return
		default:
		}
	}
	a.pending = &name
	a.mu.Unlock()
	select {
	case a.selects <- struct{}{}:
	default:
	}
}

// State returns a snapshot of the selection state.
func (a *AppCaller) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Addr returns the live address of the application.
func (a *AppCaller) Addr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.addr
}

// View returns the current presentation of the caller.
func (a *AppCaller) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Present(a.state, a.appID, a.addr)
}

// OnChange registers fn to be called on the event loop after every applied
// update. fn must not block or call Stop; it may call Select. The returned
// function removes fn.
func (a *AppCaller) OnChange(fn func(View)) (remove func()) {
	a.mu.Lock()
	a.listenerSeq++
	id := a.listenerSeq
	a.listeners = append(a.listeners, listener{id: id, fn: fn})
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, l := range a.listeners {
			if l.id == id {
				a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

func (a *AppCaller) fetchStatus(ctx context.Context) {
	defer a.wg.Done()
	defer a.post(update{synced: true})

	var resp model.StatusResponse
	err := a.conn.Request(ctx, model.MethodStatus, model.StatusParams{AppID: a.appID}, &resp)
	if err != nil {
		select {
		case <-a.stop:
			a.log.Debug("status request abandoned", zap.Error(err))
		default:
			a.log.Warn("status request failed", zap.Error(err))
		}
		return
	}

	if resp.Addr != "" {
		a.post(update{addr: resp.Addr, hasAddr: true})
	}
	if resp.Meta != nil {
		a.post(update{event: MetaUpdated{Meta: resp.Meta}})
	}
	if resp.APIEncoding != nil {
		a.post(update{event: EncodingUpdated{Encoding: resp.APIEncoding}})
	}
}

func (a *AppCaller) onNotify(n jsonrpc.Notification) {
	switch n.Method {
	case model.MethodProcessStart:
		var p model.ProcessStart
		if !a.decode(n, &p) || p.AppID != a.appID {
			return
		}
		a.post(update{addr: p.Addr, hasAddr: true})

	case model.MethodProcessReload:
		var p model.ProcessReload
		if !a.decode(n, &p) || p.AppID != a.appID {
			return
		}
		if p.Meta != nil {
			a.post(update{event: MetaUpdated{Meta: p.Meta}})
		}
		if p.APIEncoding != nil {
			a.post(update{event: EncodingUpdated{Encoding: p.APIEncoding}})
		}
	}
}

func (a *AppCaller) decode(n jsonrpc.Notification, v any) bool {
	if err := json.Unmarshal(n.Params, v); err != nil {
		a.log.Debug("ignoring undecodable notification", zap.String("method", n.Method), zap.Error(err))
		return false
	}
	return true
}

// post queues u for the event loop. Updates posted after Stop are dropped.
func (a *AppCaller) post(u update) {
	select {
	case <-a.stop:
		return
	default:
	}
	select {
	case a.updates <- u:
	case <-a.stop:
	}
}

func (a *AppCaller) loop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stop:
			return
		case u := <-a.updates:
			select {
			case <-a.stop:
				return
			default:
			}
			if u.synced {
				close(a.synced)
				continue
			}
			a.apply(u)
		case <-a.selects:
			select {
			case <-a.stop:
				return
			default:
			}
			a.mu.Lock()
			name := a.pending
			a.pending = nil
			a.mu.Unlock()
			if name != nil {
				a.apply(update{event: UserSelected{Name: *name}})
			}
		}
	}
}

func (a *AppCaller) apply(u update) {
	a.mu.Lock()
	if u.hasAddr {
		a.addr = u.addr
	}
	if u.event != nil {
		a.state = Reduce(a.state, u.event)
	}
	state, addr := a.state, a.addr
	listeners := make([]listener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	view := Present(state, a.appID, addr)
	if ce := a.log.Check(zap.DebugLevel, "caller updated"); ce != nil {
		fields := []zap.Field{zap.Bool("ready", view.Ready), zap.String("addr", addr), zap.Int("entries", len(state.Entries))}
		if state.Selected != nil {
			fields = append(fields, zap.String("selected", state.Selected.Name))
		}
		ce.Write(fields...)
	}

	for _, l := range listeners {
		l.fn(view)
	}
}
