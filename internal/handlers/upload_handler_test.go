package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
)

func newUploadFixture(t *testing.T) (*UploadHandler, *common.Paths) {
	t.Helper()
	config := common.NewDefaultConfig()
	config.Paths.InstallDir = t.TempDir()
	config.Paths.WorkDir = t.TempDir()

	paths, err := common.ResolvePaths(config)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(paths.RunDir("r1"), 0o755))

	return NewUploadHandler(paths, config.Upload), paths
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadRoutesFilesByExtension(t *testing.T) {
	handler, paths := newUploadFixture(t)

	body, contentType := multipartBody(t, map[string]string{
		"liver_1.fq.gz":     "reads",
		"kidney_2.fastq.gz": "reads",
		"genome.fasta":      "ACGT",
		"genes.gtf":         "annotation",
		"metadata.csv":      "sample_name,condition",
	})

	req := httptest.NewRequest("POST", "/runs/r1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadHandler(rec, req, "r1")

	require.Equal(t, 200, rec.Code)
	var response models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response.Files, 5)
	assert.Empty(t, response.Errors)
	assert.Equal(t, "Uploaded 5 file(s)", response.Message)

	runDir := paths.RunDir("r1")
	assert.FileExists(t, filepath.Join(runDir, "raw", "liver_1.fq.gz"))
	assert.FileExists(t, filepath.Join(runDir, "raw", "kidney_2.fastq.gz"))
	assert.FileExists(t, filepath.Join(runDir, "reference", "genome.fasta"))
	assert.FileExists(t, filepath.Join(runDir, "reference", "genes.gtf"))
	assert.FileExists(t, filepath.Join(runDir, "metadata", "metadata.csv"))
}

func TestUploadReportsUnsupportedFilesPerFile(t *testing.T) {
	handler, paths := newUploadFixture(t)

	body, contentType := multipartBody(t, map[string]string{
		"liver_1.fq.gz": "reads",
		"malware.exe":   "nope",
	})

	req := httptest.NewRequest("POST", "/runs/r1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadHandler(rec, req, "r1")

	require.Equal(t, 200, rec.Code)
	var response models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Files, 1)
	assert.Equal(t, "liver_1.fq.gz", response.Files[0].Filename)
	require.Len(t, response.Errors, 1)
	assert.Contains(t, response.Errors[0], "malware.exe")
	assert.Contains(t, response.Errors[0], "unsupported file type")

	assert.NoFileExists(t, filepath.Join(paths.RunDir("r1"), "raw", "malware.exe"))
}

func TestUploadUnknownRun(t *testing.T) {
	handler, _ := newUploadFixture(t)

	body, contentType := multipartBody(t, map[string]string{"liver_1.fq.gz": "reads"})
	req := httptest.NewRequest("POST", "/runs/ghost/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.UploadHandler(rec, req, "ghost")

	assert.Equal(t, 404, rec.Code)
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	handler, _ := newUploadFixture(t)

	req := httptest.NewRequest("POST", "/runs/r1/upload", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.UploadHandler(rec, req, "r1")

	assert.Equal(t, 400, rec.Code)
}
