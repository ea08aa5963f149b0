package panel

import "strconv"

// renderFlow is the flow label baked into every rendered link.
const renderFlow = "xtls-rprx-vision"

// Render builds the vless:// connection string for a client.
//
// The output is a stable, byte-exact function of its inputs: the change
// monitor compares these strings, so any nondeterminism here would surface
// as phantom update notifications. Query parameters are concatenated in a
// fixed order and values are used verbatim (no URL escaping) to match the
// links the panel itself hands out.
func Render(meta InboundMeta, c Client) string {
	return "vless://" + c.ID + "@" + meta.Listen + ":" + strconv.Itoa(meta.Port) +
		"?type=" + meta.Network +
		"&security=" + meta.Security +
		"&pbk=" + meta.PublicKey +
		"&fp=" + meta.Fingerprint +
		"&sni=" + meta.ServerName +
		"&sid=" + meta.ShortID +
		"&spx=%2F" +
		"&flow=" + renderFlow +
		"#" + meta.Remark + "-" + c.Email
}
