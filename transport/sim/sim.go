// Package sim is an in-memory native transport. It speaks the same
// callback contract as the production gateway, including its buffer
// ownership rules: every frame is delivered from scratch buffers that are
// poisoned the moment the callback returns, so consumers that keep a
// reference fail loudly instead of subtly.
//
// The sim answers queries from scripted handlers and pushes synthetic j8
// ticks for attached instrument codes, which makes it the transport of
// choice for tests and for development off the broker network.
package sim

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/quantbay/wmcaflow/internal/runtime/blocks"
	"github.com/quantbay/wmcaflow/transport"
)

const (
	defaultServerName   = "sim01"
	defaultTickInterval = 50 * time.Millisecond

	statusOK        = "00000"
	statusUnknownTR = "91000"
)

func init() {
	transport.Register("sim", Build)
}

// Build creates a sim with default options. Registered under "sim".
func Build(cfg transport.Config, logger watermill.LoggerAdapter) (transport.Native, error) {
	return New(Options{}, logger), nil
}

// Status is a scripted server status message.
type Status struct {
	Code string
	Text string
}

// Block is one scripted reply block.
type Block struct {
	Name string
	Data []byte
}

// Script is what a handler returns for one query: the blocks to deliver,
// an optional status message, and whether the transaction ends in an error
// event instead of a completion.
type Script struct {
	Blocks []Block
	Status *Status
	Fail   bool
}

// Handler produces the scripted reply for one query.
type Handler func(input []byte, accountIndex int) Script

// Account seeds one account record in the login reply.
type Account struct {
	Number      string
	Name        string
	ProductCode string
	BranchCode  string
	ExpireDate  string
	Granted     string
}

// Options configures a sim.
type Options struct {
	// ServerName appears in the login reply. Defaults to "sim01".
	ServerName string

	// Accounts seeds the login reply. Empty means one default account.
	Accounts []Account

	// LoginStatus, when set to a non-OK code, makes every login fail with
	// that status followed by a disconnect.
	LoginStatus *Status

	// Latency is slept before each delivery.
	Latency time.Duration

	// TickInterval is the cadence of synthetic realtime ticks for attached
	// codes. Defaults to 50ms.
	TickInterval time.Duration
}

// Sim implements transport.Native in memory. All events are delivered from
// a single dispatch goroutine, in the order their causes happened.
type Sim struct {
	log  watermill.LoggerAdapter
	opts Options

	mu        sync.Mutex
	loaded    bool
	connected bool
	ep        transport.Endpoint
	server    string
	port      int
	handlers  map[string]Handler
	attached  map[string]struct{}

	jobs chan func()
	done chan struct{}

	// Dispatch-goroutine scratch. Reused across deliveries and poisoned
	// after each one, mirroring the production gateway's buffer reuse.
	nameBuf []byte
	dataBuf []byte

	tickSeq int
}

// New creates an unloaded sim.
func New(opts Options, logger watermill.LoggerAdapter) *Sim {
	if opts.ServerName == "" {
		opts.ServerName = defaultServerName
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = defaultTickInterval
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = []Account{{
			Number:      "55500012345",
			Name:        "general",
			ProductCode: "01",
			BranchCode:  "001",
			ExpireDate:  "20991231",
			Granted:     "G",
		}}
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Sim{
		log:      logger,
		opts:     opts,
		handlers: make(map[string]Handler),
		attached: make(map[string]struct{}),
	}
}

// Handle scripts the reply for a TR code. Queries for codes without a
// handler fail with an unknown-TR status.
func (s *Sim) Handle(trCode string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[trCode] = h
}

func (s *Sim) Load() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return true
	}
	s.loaded = true
	s.jobs = make(chan func(), 256)
	s.done = make(chan struct{})
	go s.dispatch(s.jobs, s.done)
	go s.ticks(s.done)
	return true
}

func (s *Sim) Free() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return true
	}
	s.loaded = false
	s.connected = false
	s.ep = nil
	close(s.done)
	return true
}

func (s *Sim) SetServer(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = address
	return true
}

func (s *Sim) SetPort(port int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = port
	return true
}

func (s *Sim) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Sim) Connect(ep transport.Endpoint, eventTag int, mediaType, userType byte, id, password, certPassword string) bool {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false
	}
	s.ep = ep
	rejected := s.opts.LoginStatus != nil && s.opts.LoginStatus.Code != statusOK
	if !rejected {
		s.connected = true
	}
	s.mu.Unlock()

	if rejected {
		st := *s.opts.LoginStatus
		s.post(transport.TagStatusMessage, 0, "", false, statusPayload(st.Code, st.Text), 0)
		s.post(transport.TagDisconnected, 0, "", false, nil, 0)
		return true
	}

	s.post(transport.TagConnected, 0, "", false, s.loginPayload(id), 0)
	return true
}

func (s *Sim) Disconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return true
}

func (s *Sim) Query(ep transport.Endpoint, trIndex int, trCode string, input []byte, accountIndex int) bool {
	s.mu.Lock()
	if !s.loaded || !s.connected {
		s.mu.Unlock()
		return false
	}
	s.ep = ep
	handler := s.handlers[trCode]
	s.mu.Unlock()

	if handler == nil {
		s.post(transport.TagStatusMessage, trIndex, "", false,
			statusPayload(statusUnknownTR, fmt.Sprintf("unknown tr code %s", trCode)), 0)
		s.post(transport.TagError, trIndex, "", false, nil, 0)
		return true
	}

	// Copy the input before the handler sees it: the caller owns that
	// buffer, same as the native contract.
	req := append([]byte(nil), input...)
	script := handler(req, accountIndex)

	if script.Status != nil {
		s.post(transport.TagStatusMessage, trIndex, "", false,
			statusPayload(script.Status.Code, script.Status.Text), 0)
	}
	for _, block := range script.Blocks {
		s.post(transport.TagDataReceived, trIndex, block.Name, true, block.Data, 0)
	}
	if script.Fail {
		s.post(transport.TagError, trIndex, "", false, nil, 0)
	} else {
		s.post(transport.TagComplete, trIndex, "", false, nil, 0)
	}
	return true
}

func (s *Sim) Attach(ep transport.Endpoint, serviceCode, codes string, codeLen, totalLen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || !s.connected {
		return false
	}
	s.ep = ep
	for _, code := range splitCodes(codes, codeLen, totalLen) {
		s.attached[code] = struct{}{}
	}
	return true
}

func (s *Sim) Detach(ep transport.Endpoint, serviceCode, codes string, codeLen, totalLen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false
	}
	for _, code := range splitCodes(codes, codeLen, totalLen) {
		delete(s.attached, code)
	}
	return true
}

// HashAccountPassword returns a deterministic 44-character hash, the same
// shape the production gateway produces.
func (s *Sim) HashAccountPassword(accountIndex int, password string) (string, bool) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", accountIndex, password)))
	return base64.StdEncoding.EncodeToString(sum[:]), true
}

// post enqueues one delivery on the dispatch goroutine. Returns false when
// the sim is freed or has no endpoint yet.
func (s *Sim) post(tag, trIndex int, name string, nulTerminated bool, data []byte, code int) bool {
	s.mu.Lock()
	if !s.loaded || s.ep == nil {
		s.mu.Unlock()
		return false
	}
	ep := s.ep
	jobs := s.jobs
	done := s.done
	s.mu.Unlock()

	// Own copy: the caller's slice may change after post returns.
	payload := append([]byte(nil), data...)
	if data == nil {
		payload = nil
	}
	job := func() {
		s.deliver(ep, tag, trIndex, name, nulTerminated, payload, code)
	}
	select {
	case jobs <- job:
		return true
	case <-done:
		return false
	}
}

func (s *Sim) dispatch(jobs <-chan func(), done <-chan struct{}) {
	for {
		select {
		case job := <-jobs:
			job()
		case <-done:
			return
		}
	}
}

// deliver runs on the dispatch goroutine only. It stages the frame in the
// reusable scratch buffers, invokes the callback, and poisons the buffers
// so a consumer that held on to them sees garbage immediately.
func (s *Sim) deliver(ep transport.Endpoint, tag, trIndex int, name string, nulTerminated bool, data []byte, code int) {
	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}

	s.nameBuf = append(s.nameBuf[:0], name...)
	if nulTerminated {
		s.nameBuf = append(s.nameBuf, 0)
	}
	var frameData []byte
	length := 0
	if data != nil {
		s.dataBuf = append(s.dataBuf[:0], data...)
		frameData = s.dataBuf
		length = len(data)
	}

	ep.Deliver(tag, &transport.Frame{
		Tag:     tag,
		TrIndex: trIndex,
		Name:    s.nameBuf,
		Data:    frameData,
		Len:     length,
		Code:    code,
	})

	for i := range s.nameBuf {
		s.nameBuf[i] = 0xee
	}
	for i := range s.dataBuf {
		s.dataBuf[i] = 0xee
	}
}

// ticks pushes one synthetic j8 trade per attached code per interval.
func (s *Sim) ticks(done <-chan struct{}) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			connected := s.connected
			codes := make([]string, 0, len(s.attached))
			for code := range s.attached {
				codes = append(codes, code)
			}
			s.mu.Unlock()
			if !connected {
				continue
			}
			for _, code := range codes {
				s.tickSeq++
				s.post(transport.TagRealtime, 0, "j8", false, tickPayload(code, s.tickSeq), 0)
			}
		case <-done:
			return
		}
	}
}

func splitCodes(codes string, codeLen, totalLen int) []string {
	if totalLen > 0 && totalLen < len(codes) {
		codes = codes[:totalLen]
	}
	if codeLen <= 0 {
		if codes == "" {
			return nil
		}
		return []string{codes}
	}
	var out []string
	for i := 0; i+codeLen <= len(codes); i += codeLen {
		out = append(out, strings.TrimSpace(codes[i:i+codeLen]))
	}
	return out
}

// loginPayload builds the connected-event payload: the 40-byte header plus
// one 256-byte record per configured account.
func (s *Sim) loginPayload(userID string) []byte {
	buf := make([]byte, 0, 40+256*len(s.opts.Accounts))
	buf = appendPadded(buf, time.Now().Format("20060102150405"), 14)
	buf = appendPadded(buf, s.opts.ServerName, 15)
	buf = appendPadded(buf, userID, 8)
	buf = appendPadded(buf, fmt.Sprintf("%03d", len(s.opts.Accounts)), 3)

	for _, acct := range s.opts.Accounts {
		rec := make([]byte, 0, 256)
		rec = appendPadded(rec, acct.Number, 11)
		rec = appendPadded(rec, acct.Name, 40)
		rec = appendPadded(rec, acct.ProductCode, 3)
		rec = appendPadded(rec, acct.BranchCode, 4)
		rec = appendPadded(rec, acct.ExpireDate, 8)
		rec = appendPadded(rec, acct.Granted, 1)
		rec = appendPadded(rec, "", 189)
		buf = append(buf, rec...)
	}
	return buf
}

func statusPayload(code, text string) []byte {
	buf := make([]byte, 0, 85)
	buf = appendPadded(buf, code, 5)
	buf = appendPadded(buf, text, 80)
	return buf
}

// tickPayload renders one j8 trade record with deterministic values derived
// from seq.
func tickPayload(code string, seq int) []byte {
	layout, ok := blocks.Lookup("j8")
	if !ok {
		return nil
	}
	price := 70000 + (seq%40)*50
	values := map[string]string{
		"code":      code,
		"time":      time.Now().Format("15040506"),
		"sign":      "2",
		"change":    fmt.Sprintf("%d", (seq%40)*50),
		"price":     fmt.Sprintf("%d", price),
		"chrate":    "0.71",
		"high":      fmt.Sprintf("%d", price+500),
		"low":       fmt.Sprintf("%d", price-500),
		"offer":     fmt.Sprintf("%d", price+50),
		"bid":       fmt.Sprintf("%d", price-50),
		"volume":    fmt.Sprintf("%d", 1000+seq),
		"volrate":   "84.21",
		"movolume":  fmt.Sprintf("%d", 100+seq%900),
		"value":     fmt.Sprintf("%d", (1000+seq)*price/1000000),
		"open":      fmt.Sprintf("%d", price-200),
		"avgprice":  fmt.Sprintf("%d", price-100),
		"janggubun": "2",
	}

	buf := make([]byte, layout.RecordSize())
	for i := range buf {
		buf[i] = ' '
	}
	off := 0
	for _, f := range layout.Fields {
		copy(buf[off:off+f.Width], values[f.Name])
		off += f.Width + f.Skip
	}
	return buf
}

// appendPadded appends value blank-padded to width, truncating when too
// long. Sim fixtures are ASCII so byte length equals field length.
func appendPadded(buf []byte, value string, width int) []byte {
	if len(value) > width {
		value = value[:width]
	}
	buf = append(buf, value...)
	for i := len(value); i < width; i++ {
		buf = append(buf, ' ')
	}
	return buf
}
