package blocks

import (
	"fmt"
	"strconv"

	"github.com/quantbay/wmcaflow/internal/runtime/codec"
	errs "github.com/quantbay/wmcaflow/internal/runtime/errors"
)

// Login payload geometry. The connected event carries a fixed header followed
// by up to 999 account records of 256 bytes each.
const (
	loginHeaderSize  = 40
	accountSize      = 256
	maxLoginAccounts = 999
)

var loginHeaderLayout = Layout{
	Name: "loginheader",
	Fields: []FieldSpec{
		plain("szDate", 14),
		plain("szServerName", 15),
		plain("szUserID", 8),
		plain("szAccountCount", 3),
	},
}

var accountLayout = Layout{
	Name: "accountinfo",
	Fields: []FieldSpec{
		plain("szAccountNo", 11),
		plain("szAccountName", 40),
		plain("act_pdt_cdz3", 3),
		plain("amn_tab_cdz4", 4),
		plain("expr_datez8", 8),
		FieldSpec{Name: "granted", Width: 1, Skip: 189},
	},
}

// Account describes one tradable account from the login reply.
type Account struct {
	Number      string `json:"number"`
	Name        string `json:"name"`
	ProductCode string `json:"product_code"`
	BranchCode  string `json:"branch_code"`
	ExpireDate  string `json:"expire_date"`
	Granted     string `json:"granted"`
}

// LoginSession is the decoded connected event: server handshake details plus
// the account list. Accounts with an empty number are dropped, matching the
// server's habit of zero-filling unused slots.
type LoginSession struct {
	TrIndex    int       `json:"tr_index"`
	ServerTime string    `json:"server_time"`
	ServerName string    `json:"server_name"`
	UserID     string    `json:"user_id"`
	Accounts   []Account `json:"accounts"`
}

// DecodeLogin parses a connected-event payload. The declared account count is
// clamped to what the buffer actually holds and to the protocol maximum.
func DecodeLogin(data []byte, length int) (*LoginSession, error) {
	if length > len(data) {
		length = len(data)
	}
	if length < loginHeaderSize {
		return nil, fmt.Errorf("%w: login payload has %d bytes, header needs %d",
			errs.ErrSizeMismatch, length, loginHeaderSize)
	}
	header := decodeRecord(loginHeaderLayout, data[:loginHeaderSize])

	count, err := strconv.Atoi(header.Get("szAccountCount"))
	if err != nil || count < 0 {
		count = 0
	}
	if count > maxLoginAccounts {
		count = maxLoginAccounts
	}
	if available := (length - loginHeaderSize) / accountSize; count > available {
		count = available
	}

	session := &LoginSession{
		ServerTime: header.Get("szDate"),
		ServerName: header.Get("szServerName"),
		UserID:     header.Get("szUserID"),
	}
	for i := 0; i < count; i++ {
		off := loginHeaderSize + i*accountSize
		rec := decodeRecord(accountLayout, data[off:off+accountSize])
		acct := Account{
			Number:      rec.Get("szAccountNo"),
			Name:        rec.Get("szAccountName"),
			ProductCode: rec.Get("act_pdt_cdz3"),
			BranchCode:  rec.Get("amn_tab_cdz4"),
			ExpireDate:  rec.Get("expr_datez8"),
			Granted:     rec.Get("granted"),
		}
		if acct.Number == "" {
			continue
		}
		session.Accounts = append(session.Accounts, acct)
	}
	return session, nil
}

// EncodeC8201Input builds the balance inquiry request record: the 44-byte
// hashed account password followed by the one-byte balance type.
func EncodeC8201Input(hashedPassword, balanceType string) ([]byte, error) {
	if len(hashedPassword) != 44 {
		return nil, fmt.Errorf("%w: hashed password is %d chars, want 44",
			errs.ErrHashFailure, len(hashedPassword))
	}
	return codec.EncodeRecord([]codec.Field{
		{Value: hashedPassword, Width: 44},
		{Value: balanceType, Width: 1},
	})
}
