package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lightningnetwork/lninvoice/chainreg"
	"github.com/lightningnetwork/lninvoice/lnwire"
	"github.com/lightningnetwork/lninvoice/zpay32"
)

// decodedInvoice is the JSON view of a decoded invoice.
type decodedInvoice struct {
	Currency        string                 `json:"currency"`
	Network         string                 `json:"network"`
	Payee           string                 `json:"payee"`
	PayeeSource     string                 `json:"payee_source"`
	PaymentHash     string                 `json:"payment_hash"`
	PaymentAddr     string                 `json:"payment_addr,omitempty"`
	NumMsat         *uint64                `json:"num_msat,omitempty"`
	Amount          string                 `json:"amount,omitempty"`
	Timestamp       int64                  `json:"timestamp"`
	Expiry          int64                  `json:"expiry"`
	CLTVExpiry      uint64                 `json:"cltv_expiry"`
	Description     string                 `json:"description,omitempty"`
	DescriptionHash string                 `json:"description_hash,omitempty"`
	FallbackAddrs   []string               `json:"fallback_addrs,omitempty"`
	RouteHints      []routeHint            `json:"route_hints,omitempty"`
	Metadata        string                 `json:"metadata,omitempty"`
	Features        map[uint16]featureInfo `json:"features"`
	Signature       string                 `json:"signature"`
	RecoveryID      byte                   `json:"recovery_id"`
}

type routeHint struct {
	HopHints []hopHint `json:"hop_hints"`
}

type hopHint struct {
	NodeID                    string `json:"node_id"`
	ChanID                    string `json:"chan_id"`
	FeeBaseMsat               uint32 `json:"fee_base_msat"`
	FeeProportionalMillionths uint32 `json:"fee_proportional_millionths"`
	CLTVExpiryDelta           uint16 `json:"cltv_expiry_delta"`
}

type featureInfo struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"is_required"`
	IsKnown    bool   `json:"is_known"`
}

func newDecodedInvoice(invoice *zpay32.Invoice) *decodedInvoice {
	resp := &decodedInvoice{
		Currency:    chainreg.InvoicePrefix(invoice.Net),
		Network:     invoice.Net.Name,
		PayeeSource: invoice.DestinationSource.String(),
		PaymentHash: hex.EncodeToString(invoice.PaymentHash[:]),
		Timestamp:   invoice.Timestamp.Unix(),
		Expiry:      int64(invoice.Expiry().Seconds()),
		CLTVExpiry:  invoice.MinFinalCLTVExpiry(),
		Description: invoice.Description().UnwrapOr(""),
		Features:    make(map[uint16]featureInfo),
	}

	if invoice.Destination != nil {
		resp.Payee = hex.EncodeToString(
			invoice.Destination.SerializeCompressed(),
		)
	}

	invoice.PaymentAddr.WhenSome(func(addr [32]byte) {
		resp.PaymentAddr = hex.EncodeToString(addr[:])
	})

	if invoice.MilliSat != nil {
		msat := uint64(*invoice.MilliSat)
		resp.NumMsat = &msat
		resp.Amount = zpay32.MSatToAmount(*invoice.MilliSat).String()
	}

	invoice.DescriptionHash().WhenSome(func(h [32]byte) {
		resp.DescriptionHash = hex.EncodeToString(h[:])
	})

	for _, addr := range invoice.FallbackAddrs() {
		resp.FallbackAddrs = append(
			resp.FallbackAddrs, addr.EncodeAddress(),
		)
	}

	for _, hint := range invoice.RouteHints() {
		var rh routeHint
		for _, hop := range hint {
			chanID := lnwire.NewShortChanIDFromInt(hop.ChannelID)
			rh.HopHints = append(rh.HopHints, hopHint{
				NodeID: hex.EncodeToString(
					hop.NodeID.SerializeCompressed(),
				),
				ChanID:                    chanID.AltString(),
				FeeBaseMsat:               hop.FeeBaseMSat,
				FeeProportionalMillionths: hop.FeeProportionalMillionths,
				CLTVExpiryDelta:           hop.CLTVExpiryDelta,
			})
		}
		resp.RouteHints = append(resp.RouteHints, rh)
	}

	invoice.Metadata().WhenSome(func(m []byte) {
		resp.Metadata = hex.EncodeToString(m)
	})

	if invoice.Features != nil {
		for _, bit := range invoice.Features.Bits() {
			resp.Features[uint16(bit)] = featureInfo{
				Name:       invoice.Features.Name(bit),
				IsRequired: bit.IsRequired(),
				IsKnown:    invoice.Features.IsKnown(bit),
			}
		}
	}

	invoice.Signature.WhenSome(func(sig zpay32.Signature) {
		resp.Signature = hex.EncodeToString(sig.R[:]) +
			hex.EncodeToString(sig.S[:])
		resp.RecoveryID = sig.RecoveryID
	})

	return resp
}

// printTable renders the decoded invoice as tables instead of JSON.
func printTable(w io.Writer, resp *decodedInvoice) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"currency", resp.Currency},
		{"network", resp.Network},
		{"payee", fmt.Sprintf("%v (%v)", resp.Payee, resp.PayeeSource)},
		{"payment hash", resp.PaymentHash},
		{"payment addr", resp.PaymentAddr},
		{"amount", resp.Amount},
		{"timestamp", resp.Timestamp},
		{"expiry", resp.Expiry},
		{"cltv expiry", resp.CLTVExpiry},
		{"description", resp.Description},
		{"description hash", resp.DescriptionHash},
		{"fallback addrs", strings.Join(resp.FallbackAddrs, "\n")},
		{"metadata", resp.Metadata},
	})
	t.Render()

	if len(resp.RouteHints) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{
			"Hint", "Node", "Channel", "Base fee", "Fee rate",
			"CLTV delta",
		})
		for i, hint := range resp.RouteHints {
			for _, hop := range hint.HopHints {
				t.AppendRow(table.Row{
					i, hop.NodeID, hop.ChanID,
					hop.FeeBaseMsat,
					hop.FeeProportionalMillionths,
					hop.CLTVExpiryDelta,
				})
			}
		}
		t.Render()
	}

	if len(resp.Features) > 0 {
		t = table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Bit", "Name", "Required", "Known"})
		for _, bit := range sortedBits(resp.Features) {
			f := resp.Features[bit]
			t.AppendRow(table.Row{
				bit, f.Name, f.IsRequired, f.IsKnown,
			})
		}
		t.Render()
	}
}

func sortedBits(features map[uint16]featureInfo) []uint16 {
	bits := make([]uint16, 0, len(features))
	for bit := range features {
		bits = append(bits, bit)
	}
	slices.Sort(bits)

	return bits
}
