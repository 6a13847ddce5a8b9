package handlers

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ragready/pipeline/internal/adapter"
	"github.com/ragready/pipeline/internal/adapter/utils"
	"github.com/ragready/pipeline/internal/api"
	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var logRH *logger_i.Logger

// newJobData travels from the upload handler to job creation. Kept as its
// own struct so job creation can eventually move out of this package.
type newJobData struct {
	id        string
	traceId   string
	tenantId  string
	datasetId string
	filename  string
	sourceURI string
	rawSha256 string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostIngestHandler receives a document via multipart/form-data, saves it,
// registers the upload in the tenant file index, and queues an ingestion
// job. The raw content hash is computed while streaming to disk so exact
// duplicate detection never needs a second read.
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()

		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
			return
		}

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		tenantId := r.FormValue("tenant_id")
		datasetId := r.FormValue("dataset_id")
		if tenantId == "" || datasetId == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", "tenant_id and dataset_id are required")
			return
		}

		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		hasher := sha256.New()
		if _, err := io.Copy(destinationFileWriter, io.TeeReader(fileReader, hasher)); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Write error")
			return
		}

		newJob := newJobData{
			id:        utils.GetNewUUID(),
			traceId:   r.Context().Value(config.TRACE_ID_KEY).(string),
			tenantId:  tenantId,
			datasetId: datasetId,
			filename:  fileMetadata.Filename,
			sourceURI: tempFilePath,
			rawSha256: fmt.Sprintf("%x", hasher.Sum(nil)),
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		//use chi get the url id
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// GetReportHandler serves the persisted quality report for a completed job.
func GetReportHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}
		if result.Artifacts.QualityReportKey == "" {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Report not available yet")
			return
		}

		report, err := handlerInstance.readQualityReport(result.Artifacts.QualityReportKey)
		if err != nil {
			logRH.Error("Couldn't read quality report :", "err", err)
			WriteErrorResponse(w, http.StatusInternalServerError, idString, "Report read error")
			return
		}
		writeJsonResponse(w, http.StatusOK, report)
	}
}

// PostSearchHandler embeds the query and runs a filtered vector search.
func PostSearchHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		var requestData api.SearchRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Search handler reader :", err)
			}
		}(r.Body)
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.TenantId == "" || requestData.Query == "" {
			logRH.Warn("Bad Search Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "tenant_id and query are required")
			return
		}

		hits, err := handlerInstance.search(r.Context(), requestData)
		if err != nil {
			logRH.Error("Search failed :", "err", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Search error")
			return
		}
		writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(hits))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}
