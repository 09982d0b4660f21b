package handlers

import "net/http"

// Configure serves the static configuration page. The page builds the
// base64 config segment client-side and hands the user an install URL; no
// token ever reaches this server through it.
func (h *CatalogHandler) Configure(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(configurePage))
}

const configurePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Trakt Shelf - Configure</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 3rem auto; padding: 0 1rem; background: #14141e; color: #eee; }
  h1 { color: #ed1c24; }
  input { width: 100%; padding: .6rem; margin: .5rem 0 1rem; border-radius: 4px; border: 1px solid #444; background: #222; color: #eee; box-sizing: border-box; }
  button { padding: .6rem 1.2rem; border: 0; border-radius: 4px; background: #ed1c24; color: #fff; cursor: pointer; }
  code { display: block; word-break: break-all; background: #222; padding: .8rem; border-radius: 4px; margin-top: 1rem; }
</style>
</head>
<body>
<h1>Trakt Shelf</h1>
<p>Paste your Trakt access token to build an install link for your Stremio client.</p>
<label for="token">Trakt access token</label>
<input id="token" type="password" placeholder="access token" autocomplete="off">
<button onclick="build()">Generate install link</button>
<code id="out" hidden></code>
<script>
function build() {
  var token = document.getElementById('token').value.trim();
  if (!token) return;
  var cfg = btoa(JSON.stringify({accessToken: token}));
  var out = document.getElementById('out');
  out.hidden = false;
  out.textContent = location.origin + '/' + cfg + '/manifest.json';
}
</script>
</body>
</html>
`
