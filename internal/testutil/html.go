package testutil

import (
	"fmt"
	"strings"
	"time"
)

// ResultRow is one row of a fake search result page.
type ResultRow struct {
	ID         int64
	Name       string
	CategoryID int
	Comments   int
	Published  time.Time
	Size       string // as rendered, e.g. "1.37Go"
	Completed  int
	Seeders    int
	Leechers   int
}

// ResultsPage renders rows the way the origin's search page lays them out.
func ResultsPage(rows ...ResultRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="results"><table class="table"><thead><tr>`)
	b.WriteString(`<th>Type</th><th>Nom</th><th>NFO</th><th>Com.</th><th>Age</th><th>Taille</th><th>Compl.</th><th>Seed</th><th>Leech</th>`)
	b.WriteString(`</tr></thead><tbody>`)
	for _, r := range rows {
		published := r.Published
		if published.IsZero() {
			published = time.Unix(1700000000, 0)
		}
		size := r.Size
		if size == "" {
			size = "1.00Go"
		}
		fmt.Fprintf(&b, `<tr>`+
			`<td><div class="hidden">%d</div><span class="tag_subcat_%d"></span></td>`+
			`<td><a id="torrent_name" href="https://www.example.test/torrent/film/%d/%d-%s">%s</a></td>`+
			`<td><a id="get_nfo" target="%d">NFO</a></td>`+
			`<td>%d</td>`+
			`<td><div class="hidden">%d</div><span class="ico_clock-o"></span>il y a 1 jour</td>`+
			`<td>%s</td><td>%d</td><td>%d</td><td>%d</td>`+
			`</tr>`,
			r.CategoryID, r.CategoryID,
			r.CategoryID, r.ID, slug(r.Name), r.Name,
			r.ID,
			r.Comments,
			published.Unix(),
			size, r.Completed, r.Seeders, r.Leechers)
	}
	b.WriteString(`</tbody></table></div></body></html>`)
	return b.String()
}

// Results builds count rows with sequential IDs starting at firstID.
func Results(firstID int64, count int) []ResultRow {
	rows := make([]ResultRow, count)
	for i := range rows {
		id := firstID + int64(i)
		rows[i] = ResultRow{ID: id, Name: fmt.Sprintf("Torrent %d", id), CategoryID: 2183, Seeders: i}
	}
	return rows
}

// RemainingPage renders the daily download counter "remaining/total".
func RemainingPage(remaining, total int) string {
	return fmt.Sprintf(`<html><body><div class="box">`+
		`<small style="color: #888;">Téléchargements restants : <strong>%d/%d</strong></small>`+
		`</div></body></html>`, remaining, total)
}

// QuotaReachedPage renders the page shown once the daily quota is spent.
func QuotaReachedPage() string {
	return `<html><body><div class="alert">Limite atteinte pour aujourd'hui</div></body></html>`
}

// LoginPage is what the origin serves when a session is no longer valid.
func LoginPage() string {
	return `<html><body><form action="/auth/process_login" method="post">` +
		`<input name="id"><input name="pass" type="password"></form></body></html>`
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// AccountPage renders the account page's label/value table.
func AccountPage(username, uploaded, downloaded, ratio string) string {
	return fmt.Sprintf(`<html><body><table>`+
		`<tr><td>Pseudo</td><td>%s</td></tr>`+
		`<tr><td>Upload</td><td>%s</td></tr>`+
		`<tr><td>Download</td><td>%s</td></tr>`+
		`<tr><td>Ratio</td><td>%s</td></tr>`+
		`</table></body></html>`, username, uploaded, downloaded, ratio)
}
