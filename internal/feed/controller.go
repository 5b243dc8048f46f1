// Package feed owns the in-memory message feed of one chat session: the initial
// bulk load, live appends from the change channel, and the send pipeline.
package feed

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"public-chat/internal/client"
)

// DefaultLimit is the size of the most-recent window loaded on Initialize.
const DefaultLimit = 100

// DocumentStore lists and writes message documents.
type DocumentStore interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*client.DocumentList, error)
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*client.Document, error)
}

// ObjectStore holds uploaded images.
type ObjectStore interface {
	CreateFile(ctx context.Context, bucketID, fileID string, file *client.InputFile) (*client.File, error)
	FileViewURL(bucketID, fileID string) (string, error)
	DeleteFile(ctx context.Context, bucketID, fileID string) error
}

// ChangeChannel delivers collection change notifications.
type ChangeChannel interface {
	Subscribe(ctx context.Context, channels []string, onEvent func(client.RealtimeEvent), onClose func(error)) (func(), error)
}

// OrphanPolicy decides what happens to an uploaded image whose message could not be written.
type OrphanPolicy int

const (
	// OrphanKeep leaves the file in the bucket.
	OrphanKeep OrphanPolicy = iota
	// OrphanDelete tries once to delete the file; failure is only logged.
	OrphanDelete
)

// ParseOrphanPolicy accepts "keep" and "delete"; anything else is OrphanKeep.
func ParseOrphanPolicy(s string) OrphanPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "delete") {
		return OrphanDelete
	}
	return OrphanKeep
}

// Config names the collection and bucket the feed works against.
type Config struct {
	DatabaseID   string
	CollectionID string
	BucketID     string
	Limit        int
	OrphanPolicy OrphanPolicy
}

func (c Config) limit() int {
	if c.Limit <= 0 {
		return DefaultLimit
	}
	return c.Limit
}

// Channel returns the change-channel path of the message collection.
func (c Config) Channel() string {
	return fmt.Sprintf("databases.%s.collections.%s.documents", c.DatabaseID, c.CollectionID)
}

// State is the controller lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateTornDown:
		return "torn down"
	default:
		return "uninitialized"
	}
}

// Composer is the draft being written.
type Composer struct {
	Text    string
	File    *client.InputFile
	Focused bool
}

// Result describes a finished Send. Skipped is set when another send was in flight.
type Result struct {
	Skipped  bool
	Document *client.Document
	Payload  Payload
	FileID   string
}

// Controller is safe for concurrent use; the change channel calls OnNotification
// from its own goroutine.
type Controller struct {
	cfg     Config
	docs    DocumentStore
	files   ObjectStore
	channel ChangeChannel
	now     func() time.Time
	newID   func() string

	mu          sync.Mutex
	state       State
	items       []Message
	err         error
	composer    Composer
	sending     bool
	dropped     int
	unsubscribe func()
	onChange    func()
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces client.UniqueID for file and document ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// New builds an uninitialized controller.
func New(cfg Config, docs DocumentStore, files ObjectStore, channel ChangeChannel, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		docs:     docs,
		files:    files,
		channel:  channel,
		now:      time.Now,
		newID:    client.UniqueID,
		composer: Composer{Focused: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnChange registers fn to run after every state change. fn runs outside the
// controller lock, possibly on the change channel goroutine.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Initialize loads the most recent messages and opens the live subscription.
// A fetch failure leaves the feed empty and still subscribes; the returned error
// is also kept in Err.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateTornDown:
		c.mu.Unlock()
		return ErrTornDown
	case StateUninitialized:
	default:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if c.cfg.DatabaseID == "" || c.cfg.CollectionID == "" {
		c.state = StateReady
		c.err = ErrConfigMissing
		c.mu.Unlock()
		c.changed()
		return ErrConfigMissing
	}
	c.state = StateLoading
	c.mu.Unlock()
	c.changed()

	items, fetchErr := c.fetch(ctx)

	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	c.state = StateReady
	c.items = items
	c.err = fetchErr
	c.mu.Unlock()
	c.changed()

	unsubscribe, err := c.channel.Subscribe(ctx, []string{c.cfg.Channel()}, c.OnNotification, c.onChannelLost)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
		log.Printf("feed subscribe failed: channel=%s err=%v", c.cfg.Channel(), err)
		c.mu.Lock()
		if c.err == nil {
			c.err = err
		}
		c.mu.Unlock()
		c.changed()
		if fetchErr != nil {
			return fetchErr
		}
		return err
	}

	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		unsubscribe()
		return ErrTornDown
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return fetchErr
}

func (c *Controller) fetch(ctx context.Context) ([]Message, error) {
	list, err := c.docs.ListDocuments(ctx, c.cfg.DatabaseID, c.cfg.CollectionID,
		client.OrderDesc("createdAt"), client.Limit(c.cfg.limit()))
	if err != nil {
		log.Printf("feed load failed: database=%s collection=%s err=%v", c.cfg.DatabaseID, c.cfg.CollectionID, err)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if list == nil {
		return nil, nil
	}

	items := make([]Message, 0, len(list.Documents))
	dropped := 0
	for _, doc := range list.Documents {
		var msg Message
		if err := doc.Decode(&msg); err != nil {
			log.Printf("feed document dropped: collection=%s document_id=%s err=%v", c.cfg.CollectionID, doc.ID, err)
			dropped++
			continue
		}
		items = append(items, msg)
	}
	if dropped > 0 {
		c.mu.Lock()
		c.dropped += dropped
		c.mu.Unlock()
	}
	// newest first on the wire, oldest first on screen
	slices.Reverse(items)
	return items, nil
}

// onChannelLost records a subscription that ended without Teardown. Live
// messages stop arriving until the controller is rebuilt.
func (c *Controller) onChannelLost(cause error) {
	err := fmt.Errorf("%w: connection lost: %w", ErrSubscribeFailed, cause)
	log.Printf("feed subscription lost: channel=%s err=%v", c.cfg.Channel(), cause)
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.mu.Unlock()
	c.changed()
}

// OnNotification is the change channel callback. Malformed frames are dropped and counted.
func (c *Controller) OnNotification(raw client.RealtimeEvent) {
	ev, err := Decode(raw)
	if err != nil {
		log.Printf("feed event dropped: events=%v err=%v", raw.Events, err)
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		return
	}
	c.Apply(ev)
}

// Apply appends create events to the tail of the feed and ignores the rest.
// There is no de-duplication against messages already present.
func (c *Controller) Apply(ev Event) {
	if ev.Kind != EventCreate {
		return
	}
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items, ev.Message)
	c.mu.Unlock()
	c.changed()
}

// Send uploads file (if any), then writes the message document. The feed itself is
// not touched: the sender's message shows up when the change channel delivers it.
func (c *Controller) Send(ctx context.Context, user *User, text string, file *client.InputFile) (Result, error) {
	if user == nil {
		return Result{}, ErrUnauthenticated
	}
	body := strings.TrimSpace(text)
	if body == "" && file == nil {
		return Result{}, ErrEmptyMessage
	}
	if c.cfg.DatabaseID == "" || c.cfg.CollectionID == "" {
		return Result{}, ErrConfigMissing
	}

	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return Result{}, ErrTornDown
	}
	if c.sending {
		c.mu.Unlock()
		return Result{Skipped: true}, nil
	}
	c.sending = true
	c.mu.Unlock()
	c.changed()

	var (
		fileID   string
		imageURL *string
	)
	if file != nil {
		fileID = c.newID()
		if _, err := c.files.CreateFile(ctx, c.cfg.BucketID, fileID, file); err != nil {
			log.Printf("feed upload failed: bucket=%s file_id=%s err=%v", c.cfg.BucketID, fileID, err)
			c.finishSend(nil)
			return Result{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		viewURL, err := c.files.FileViewURL(c.cfg.BucketID, fileID)
		if err != nil {
			log.Printf("feed %v: bucket=%s file_id=%s err=%v", ErrViewURLResolution, c.cfg.BucketID, fileID, err)
		} else {
			imageURL = &viewURL
		}
	}

	payload := Payload{
		SenderID:   user.ID,
		SenderName: user.DisplayName,
		Text:       body,
		ImageURL:   imageURL,
		CreatedAt:  c.now().UTC().Format(timestampLayout),
	}

	doc, err := c.docs.CreateDocument(ctx, c.cfg.DatabaseID, c.cfg.CollectionID, c.newID(), payload)
	if err != nil {
		log.Printf("feed send failed: database=%s collection=%s err=%v", c.cfg.DatabaseID, c.cfg.CollectionID, err)
		if fileID != "" && c.cfg.OrphanPolicy == OrphanDelete {
			c.dropOrphan(ctx, fileID)
		}
		c.finishSend(func(cm *Composer) {
			cm.Text = body
		})
		return Result{Payload: payload, FileID: fileID}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	c.finishSend(func(cm *Composer) {
		cm.Text = ""
		cm.File = nil
		cm.Focused = true
	})
	return Result{Document: doc, Payload: payload, FileID: fileID}, nil
}

func (c *Controller) dropOrphan(ctx context.Context, fileID string) {
	if err := c.files.DeleteFile(ctx, c.cfg.BucketID, fileID); err != nil {
		log.Printf("feed orphan delete failed: bucket=%s file_id=%s err=%v", c.cfg.BucketID, fileID, err)
	}
}

// finishSend clears the in-flight flag and applies update to the composer unless
// the controller was torn down meanwhile.
func (c *Controller) finishSend(update func(*Composer)) {
	c.mu.Lock()
	c.sending = false
	if update != nil && c.state != StateTornDown {
		update(&c.composer)
	}
	c.mu.Unlock()
	c.changed()
}

// Teardown closes the live subscription and drops the feed. Safe to call repeatedly.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.state = StateTornDown
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.items = nil
	c.composer = Composer{}
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Items returns a copy of the feed, oldest first.
func (c *Controller) Items() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the load, configuration or subscription error, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Sending reports whether a send is in flight.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Dropped counts stored documents and realtime frames discarded as malformed.
func (c *Controller) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Composer returns a snapshot of the draft.
func (c *Controller) Composer() Composer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composer
}

// SetDraft replaces the draft text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.state != StateTornDown {
		c.composer.Text = text
	}
	c.mu.Unlock()
}

// Attach selects a file for the next send.
func (c *Controller) Attach(file *client.InputFile) {
	c.mu.Lock()
	if c.state != StateTornDown {
		c.composer.File = file
	}
	c.mu.Unlock()
	c.changed()
}

// Detach clears the selected file.
func (c *Controller) Detach() {
	c.Attach(nil)
}
