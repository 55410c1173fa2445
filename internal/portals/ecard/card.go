package ecard

import (
	"context"
	"encoding/json"
	"net/url"

	"csuassist/internal/failure"
	"csuassist/pkg/jsonutil"
)

type AutoTransfer struct {
	Enabled bool
	Amount  float64
	Limit   float64
}

type SubAccount struct {
	Name    string
	Type    string
	Balance float64
}

type Card struct {
	StudentId    string
	Name         string
	Phone        string
	Account      string
	CardName     string
	CardType     string
	Balance      float64
	ElecBalance  float64
	Unsettled    float64
	Debit        float64
	AutoTransfer AutoTransfer
	Frozen       bool
	Lost         bool
	ExpireDate   string
	Cert         string
	SubAccounts  []SubAccount
}

// CardSnapshot is the state of every card of the account at the time of
// the request, balances are in yuan.
type CardSnapshot struct {
	Code    string
	Success bool
	Retcode string
	Cards   []Card
}

type rawCard struct {
	CardNameEn      jsonutil.Text `json:"card_name_en"`
	Sno             jsonutil.Text `json:"sno"`
	Account         jsonutil.Text `json:"account"`
	Name            jsonutil.Text `json:"name"`
	Phone           jsonutil.Text `json:"phone"`
	CardName        jsonutil.Text `json:"card_name"`
	CardType        jsonutil.Text `json:"cardtype"`
	DbBalance       amount        `json:"db_balance"`
	ElecAccamt      amount        `json:"elec_accamt"`
	UnsettleAmount  amount        `json:"unsettle_amount"`
	Debitamt        amount        `json:"debitamt"`
	AutotransFlag   jsonutil.Flag `json:"autotrans_flag"`
	AutotransAmt    amount        `json:"autotrans_amt"`
	AutotransLimite amount        `json:"autotrans_limite"`
	Freezeflag      jsonutil.Flag `json:"freezeflag"`
	Lostflag        jsonutil.Flag `json:"lostflag"`
	Expdate         jsonutil.Text `json:"expdate"`
	Cert            jsonutil.Text `json:"cert"`
	Accinfo         []struct {
		Name    jsonutil.Text `json:"name"`
		Type    jsonutil.Text `json:"type"`
		Balance amount        `json:"balance"`
	} `json:"accinfo"`
}

type rawCardEnvelope struct {
	Code    jsonutil.Text `json:"code"`
	Success bool          `json:"success"`
	Data    struct {
		Retcode jsonutil.Text `json:"retcode"`
		Sno     jsonutil.Text `json:"sno"`
		Card    []rawCard     `json:"card"`
	} `json:"data"`
}

// Card fetches the balance snapshot of the account's cards.
func (c Client) Card(ctx context.Context) (CardSnapshot, error) {
	c.tel.ReportDebug("get card")

	var envelope rawCardEnvelope
	err := c.getJson(
		ctx,
		"card-balance",
		c.endpoint(cardPath),
		url.Values{
			"scene":           {"recharge"},
			"synAccessSource": {"pc"},
		},
		"",
		&envelope,
	)
	if err != nil {
		c.tel.ReportBroken(report_client_card, err)
		return CardSnapshot{}, err
	}

	snapshot := envelope.snapshot()
	for i, card := range snapshot.Cards {
		if card.StudentId == "" {
			c.tel.ReportWarning(report_client_card, failure.EmptyField{
				Operation: "card-balance",
				Field:     "StudentId",
				Row:       i,
			})
		}
	}
	c.tel.ReportCount(report_client_card, int64(len(snapshot.Cards)))
	return snapshot, nil
}

// ParseCard decodes a card query response.
func ParseCard(body []byte) (CardSnapshot, error) {
	var envelope rawCardEnvelope
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return CardSnapshot{}, &failure.PageMarkerMissing{Operation: "card-balance", Marker: "json envelope"}
	}
	return envelope.snapshot(), nil
}

func (e rawCardEnvelope) snapshot() CardSnapshot {
	cards := make([]Card, len(e.Data.Card))
	for i, raw := range e.Data.Card {
		subAccounts := make([]SubAccount, len(raw.Accinfo))
		for j, acc := range raw.Accinfo {
			subAccounts[j] = SubAccount{
				Name:    string(acc.Name),
				Type:    string(acc.Type),
				Balance: float64(acc.Balance),
			}
		}

		cards[i] = Card{
			StudentId:   jsonutil.FirstText(raw.CardNameEn, raw.Sno, e.Data.Sno, raw.Account),
			Name:        string(raw.Name),
			Phone:       string(raw.Phone),
			Account:     string(raw.Account),
			CardName:    string(raw.CardName),
			CardType:    string(raw.CardType),
			Balance:     float64(raw.DbBalance),
			ElecBalance: float64(raw.ElecAccamt),
			Unsettled:   float64(raw.UnsettleAmount),
			Debit:       float64(raw.Debitamt),
			AutoTransfer: AutoTransfer{
				Enabled: bool(raw.AutotransFlag),
				Amount:  float64(raw.AutotransAmt),
				Limit:   float64(raw.AutotransLimite),
			},
			Frozen:      bool(raw.Freezeflag),
			Lost:        bool(raw.Lostflag),
			ExpireDate:  string(raw.Expdate),
			Cert:        string(raw.Cert),
			SubAccounts: subAccounts,
		}
	}
	return CardSnapshot{
		Code:    string(e.Code),
		Success: e.Success,
		Retcode: string(e.Data.Retcode),
		Cards:   cards,
	}
}
