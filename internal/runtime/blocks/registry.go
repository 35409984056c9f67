package blocks

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Layout)
)

// Register adds or replaces a layout under its name. Applications register
// layouts for the TR codes they use; the package ships with the balance
// inquiry (c8201) and KOSPI/KOSDAQ tick (j8) layouts.
func Register(layout Layout) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[layout.Name] = layout
}

// Lookup returns the layout registered under name.
func Lookup(name string) (Layout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	layout, ok := registry[name]
	return layout, ok
}

// Names returns the registered layout names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// attr is a field followed by one attribute byte, the common case in TR
// output records.
func attr(name string, width int) FieldSpec {
	return FieldSpec{Name: name, Width: width, Skip: 1}
}

func plain(name string, width int) FieldSpec {
	return FieldSpec{Name: name, Width: width}
}

// Server status message header: five-digit code plus user text. Not in the
// registry because status events force this layout explicitly.
var statusLayout = Layout{
	Name: "msgheader",
	Fields: []FieldSpec{
		plain("msg_cd", 5),
		plain("user_msg", 80),
	},
}

var statusSize = statusLayout.RecordSize()

func init() {
	// Balance inquiry summary, one record per reply.
	Register(Layout{
		Name: "c8201OutBlock",
		Fields: []FieldSpec{
			attr("dpsit_amtz16", 16),
			attr("mrgn_amtz16", 16),
			attr("mgint_npaid_amtz16", 16),
			attr("chgm_pos_amtz16", 16),
			attr("cash_mrgn_amtz16", 16),
			attr("subst_mgamt_amtz16", 16),
			attr("coltr_ratez6", 6),
			attr("rcble_amtz16", 16),
			attr("order_pos_csamtz16", 16),
			attr("ecn_pos_csamtz16", 16),
			attr("nordm_loan_amtz16", 16),
			attr("etc_lend_amtz16", 16),
			attr("subst_amtz16", 16),
			attr("sln_sale_amtz16", 16),
			attr("bal_buy_ttamtz16", 16),
			attr("bal_ass_ttamtz16", 16),
			attr("asset_tot_amtz16", 16),
			attr("actvt_type10", 10),
			attr("lend_amtz16", 16),
			attr("accnt_mgamt_ratez6", 6),
			attr("sl_mrgn_amtz16", 16),
			attr("pos_csamt1z16", 16),
			attr("pos_csamt2z16", 16),
			attr("pos_csamt3z16", 16),
			attr("pos_csamt4z16", 16),
			attr("dpsit_amtz_d1_16", 16),
			attr("dpsit_amtz_d2_16", 16),
			attr("noticez30", 30),
			attr("tot_eal_plsz18", 18),
			attr("pft_rtz15", 15),
		},
	})

	// Balance inquiry holdings, repeated per held issue.
	Register(Layout{
		Name:  "c8201OutBlock1",
		Array: true,
		Fields: []FieldSpec{
			attr("issue_codez6", 6),
			attr("issue_namez40", 40),
			attr("bal_typez6", 6),
			attr("loan_datez10", 10),
			attr("bal_qtyz16", 16),
			attr("unstl_qtyz16", 16),
			attr("slby_amtz16", 16),
			attr("prsnt_pricez16", 16),
			attr("lsnpf_amtz16", 16),
			attr("earn_ratez9", 9),
			attr("mrgn_codez4", 4),
			attr("jan_qtyz16", 16),
			attr("expr_datez10", 10),
			attr("ass_amtz16", 16),
			attr("issue_mgamt_ratez6", 6),
			attr("medo_slby_amtz16", 16),
			attr("post_lsnpf_amtz16", 16),
		},
	})

	// KOSPI/KOSDAQ trade tick, pushed after attaching to "j8".
	Register(Layout{
		Name: "j8",
		Fields: []FieldSpec{
			attr("code", 6),
			attr("time", 8),
			attr("sign", 1),
			attr("change", 6),
			attr("price", 7),
			attr("chrate", 5),
			attr("high", 7),
			attr("low", 7),
			attr("offer", 7),
			attr("bid", 7),
			attr("volume", 9),
			attr("volrate", 6),
			attr("movolume", 8),
			attr("value", 9),
			attr("open", 7),
			attr("avgprice", 7),
			attr("janggubun", 1),
		},
	})
}
