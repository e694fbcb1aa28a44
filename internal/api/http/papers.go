package http

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examprep/internal/audit"
	"github.com/mind-engage/examprep/internal/storage"
)

const papersPrefix = "papers"

type Paper struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type paperPage struct {
	Papers     []Paper `json:"papers"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
}

// paperTitle turns "ssc_cgl_2019.pdf" into "Ssc Cgl 2019".
func paperTitle(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	words := strings.Fields(strings.ReplaceAll(base, "_", " "))
	for i, w := range words {
		rs := []rune(strings.ToLower(w))
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

func isPDF(name string) bool { return strings.EqualFold(path.Ext(name), ".pdf") }

// validPaperName rejects anything that is not a plain *.pdf file name.
func validPaperName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\"`) && !strings.HasPrefix(name, ".") && isPDF(name)
}

// GET /papers?page=n
func ListPapersHandler(bs storage.BlobStore, perPage int) http.HandlerFunc {
	if perPage <= 0 {
		perPage = 5
	}
	return func(w http.ResponseWriter, r *http.Request) {
		objs, err := bs.List(papersPrefix)
		if err != nil {
			log.Printf("papers: list: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		all := make([]Paper, 0, len(objs))
		for _, o := range objs {
			name := path.Base(o.Key)
			if !isPDF(name) {
				continue
			}
			all = append(all, Paper{Title: paperTitle(name), Filename: name, Size: o.Size})
		}

		page := parseIntDefault(r.URL.Query().Get("page"), 1)
		if page < 1 {
			page = 1
		}
		totalPages := (len(all) + perPage - 1) / perPage
		// Pages past the end are empty; page*perPage would overflow for huge pages.
		start := len(all)
		if page <= totalPages {
			start = (page - 1) * perPage
		}
		end := min(start+perPage, len(all))

		writeJSON(w, http.StatusOK, paperPage{
			Papers:     all[start:end],
			Page:       page,
			TotalPages: totalPages,
			Total:      len(all),
		})
	}
}

// GET /papers/{filename}
func DownloadPaperHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if !validPaperName(name) {
			writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		rc, err := bs.Get(papersPrefix + "/" + name)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		if err != nil {
			log.Printf("papers: get %s: %v", name, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
		_, _ = io.Copy(w, rc)
	}
}

// PUT /admin/papers/{filename}  (multipart file= or raw body)
func UploadPaperHandler(bs storage.BlobStore, rec audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if !validPaperName(name) {
			writeError(w, http.StatusBadRequest, "filename must be a plain .pdf name")
			return
		}
		var src io.Reader = r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, "file required")
				return
			}
			defer f.Close()
			src = f
		}
		key, err := bs.Put(papersPrefix+"/"+name, src)
		if err != nil {
			log.Printf("papers: put %s: %v", name, err)
			writeError(w, http.StatusInternalServerError, "store error")
			return
		}
		rec.Record(r.Context(), audit.PaperUploaded, key, nil)
		writeJSON(w, http.StatusCreated, map[string]string{"key": key, "title": paperTitle(name)})
	}
}
