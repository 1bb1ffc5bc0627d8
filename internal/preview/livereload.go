package preview

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"
)

// reloadScript subscribes to the events stream and reloads on site.reload.
const reloadScript = `<script>new EventSource("` + EventsPath + `").addEventListener("site.reload",function(){location.reload()});</script>`

// injectReload places the reload script before the closing body tag, or at
// the end when there is none.
func injectReload(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page, reloadScript...)
	}
	out := make([]byte, 0, len(page)+len(reloadScript))
	out = append(out, page[:i]...)
	out = append(out, reloadScript...)
	return append(out, page[i:]...)
}

// liveReload serves HTML pages from root with the reload script injected
// and hands everything else to next.
func liveReload(root http.FileSystem, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if ext := path.Ext(name); ext != ".html" && ext != ".htm" {
			next.ServeHTTP(w, r)
			return
		}

		f, err := root.Open(name)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			next.ServeHTTP(w, r)
			return
		}
		page, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(injectReload(page)))
	})
}
