// README: Cash register aggregate, payment accounts and the closing arithmetic.
package register

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"yoake/internal/types"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Account is the destination a payment settled into.
type Account string

const (
	AccountCash   Account = "DINHEIRO"
	AccountNubank Account = "NUBANK"
	AccountPicPay Account = "PICPAY"
	AccountPix    Account = "PIX"
	AccountIFood  Account = "IFOOD"
)

// SystemUser is recorded when a register is opened without an authenticated staff member.
const SystemUser = "system"

var (
	ErrAlreadyOpen    = errors.New("a cash register is already open")
	ErrNoOpenRegister = errors.New("no open cash register")
	ErrRegisterClosed = errors.New("register closed")
	ErrBadRequest     = errors.New("bad request")
)

// KnownAccount reports whether a lands in one of the ledger buckets.
func KnownAccount(a Account) bool {
	switch a {
	case AccountCash, AccountNubank, AccountPicPay, AccountPix, AccountIFood:
		return true
	}
	return false
}

type Totals struct {
	Cash   decimal.Decimal `json:"total_cash"`
	Nubank decimal.Decimal `json:"total_nubank"`
	PicPay decimal.Decimal `json:"total_picpay"`
	Pix    decimal.Decimal `json:"total_pix"`
	IFood  decimal.Decimal `json:"total_ifood"`
}

func (t Totals) Sum() decimal.Decimal {
	return types.SumMoney(t.Cash, t.Nubank, t.PicPay, t.Pix, t.IFood)
}

type Register struct {
	ID             types.ID            `json:"id"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	ClosingBalance decimal.NullDecimal `json:"closing_balance"`
	Totals
	Status   Status     `json:"status"`
	UserID   string     `json:"user_id"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// Sale is the settled amount of completed orders grouped by payment account.
// An empty account means the order completed without a recorded payment.
type Sale struct {
	Account Account         `json:"payment_account"`
	Amount  decimal.Decimal `json:"total"`
}

// Summarize buckets completed sales per account. Sales with no or an unknown
// account are left out. closing = opening + sum of buckets.
func Summarize(opening decimal.Decimal, sales []Sale) (Totals, decimal.Decimal) {
	t := Totals{}
	for _, s := range sales {
		switch s.Account {
		case AccountCash:
			t.Cash = t.Cash.Add(s.Amount)
		case AccountNubank:
			t.Nubank = t.Nubank.Add(s.Amount)
		case AccountPicPay:
			t.PicPay = t.PicPay.Add(s.Amount)
		case AccountPix:
			t.Pix = t.Pix.Add(s.Amount)
		case AccountIFood:
			t.IFood = t.IFood.Add(s.Amount)
		}
	}
	t.Cash = types.RoundMoney(t.Cash)
	t.Nubank = types.RoundMoney(t.Nubank)
	t.PicPay = types.RoundMoney(t.PicPay)
	t.Pix = types.RoundMoney(t.Pix)
	t.IFood = types.RoundMoney(t.IFood)
	return t, types.SumMoney(opening, t.Sum())
}

// View is what the register status endpoint reports.
type View struct {
	Status             Status           `json:"status"`
	Register           *Register        `json:"register,omitempty"`
	CurrentTotals      []Sale           `json:"current_totals,omitempty"`
	Totals             *Totals          `json:"totals,omitempty"`
	ExpectedBalance    *decimal.Decimal `json:"expected_balance,omitempty"`
	LastClosingBalance *decimal.Decimal `json:"last_closing_balance,omitempty"`
}

type OpenCommand struct {
	OpeningBalance decimal.Decimal
	UserID         string
}
