package clients

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/api/clients/importer"
	"BesCrmSaas/internal/config"
	"BesCrmSaas/internal/notification"
)

func fileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// readSpreadsheet converts an uploaded .xlsx/.xls workbook's first sheet into
// a cell grid for the importer.
func readSpreadsheet(file multipart.File, ext string) ([][]string, error) {
	if ext == ".xlsx" {
		f, err := excelize.OpenReader(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		return f.GetRows(sheet)
	}

	// xlsReader works with file paths, so stage the upload in a temp file.
	tmp, err := os.CreateTemp("", "roster-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, err
	}
	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, errors.New("failed to get xls sheet")
	}

	var rows [][]string
	for _, xlsRow := range sheet.GetRows() {
		var cells []string
		for _, col := range xlsRow.GetCols() {
			cells = append(cells, col.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func parseUpload(file multipart.File, filename string, kind importer.Kind) ([]importer.Row, error) {
	ext := fileExt(filename)
	switch ext {
	case ".csv", ".txt", "":
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.New("Dosya okunamadı.")
		}
		return importer.Parse(kind, string(content))
	case ".xlsx", ".xls":
		records, err := readSpreadsheet(file, ext)
		if err != nil {
			return nil, errors.New("Dosya okunamadı veya biçimi tanınmadı.")
		}
		return importer.ParseRecords(kind, records)
	default:
		return nil, errors.New("Desteklenmeyen dosya türü. CSV, XLSX veya XLS yükleyin.")
	}
}

// ImportClients handles the roster upload: parse, validate (all-or-nothing),
// reconcile row by row, log the upload, then fire the birthday trigger.
func ImportClients(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "Form verisi okunamadı.")
			return
		}

		session := auth.SessionByUserID(r.FormValue("user_id"))
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		kind := importer.KindSavings
		if strings.ToUpper(r.FormValue("upload_type")) == string(importer.KindPolicy) {
			kind = importer.KindPolicy
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			api.RespondWithResult(w, false, "Yüklemek için bir CSV dosyası seçmelisiniz.")
			return
		}
		defer file.Close()

		store := NewRosterStore(pgxPool, session.UserID)

		caps, err := store.Capabilities(ctx)
		if err != nil {
			api.LogError("clients capability check failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri verileri alınamadı.")
			return
		}
		if kind == importer.KindPolicy && !caps.PolicyColumns {
			api.RespondWithResult(w, false,
				"Elementer sigorta CSV yüklemeleri için veritabanındaki clients tablosuna client_type, policy_type, policy_start_date ve policy_end_date kolonlarını eklemelisiniz.")
			return
		}

		rows, err := parseUpload(file, header.Filename, kind)
		if err != nil {
			api.RespondWithResult(w, false, err.Error())
			return
		}

		summary, err := Reconcile(ctx, store, caps, rows)
		if err != nil {
			api.LogError("import reconcile failed: %v", err)
			api.RespondWithResult(w, false, "Mevcut müşteriler alınamadı.")
			return
		}

		if err := store.AppendUploadLog(ctx, header.Filename, len(rows)); err != nil {
			api.LogError("upload log insert failed: %v", err)
		}

		TriggerBirthdayCampaigns(ctx, NewCampaignSink(pgxPool, session.UserID), rows, time.Now())

		notification.Default.Publish(session.UserID, "import", summary.Message())

		api.RespondWithResult(w, summary.Success(), summary.Message())
	}
}
