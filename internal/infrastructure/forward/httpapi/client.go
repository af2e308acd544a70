package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
)

// payload is the record shape the downstream filing API accepts.
type payload struct {
	PatientFirstname   string `json:"patientFirstname"`
	PatientLastname    string `json:"patientLastname"`
	MedicalExamination string `json:"medicalExamination"`
	ExaminationDate    string `json:"examinationDate"`
	PatientBirthDate   string `json:"patientBirthDate"`
	DocumentID         string `json:"documentId"`
	Status             int    `json:"status"`
	FolderName         string `json:"folderName"`
}

// Forwarder implements ports.OutcomeForwarder by POSTing to an external API.
type Forwarder struct {
	url        string
	token      string
	httpClient *http.Client
}

func New(url, token string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Forwarder{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *Forwarder) Forward(ctx context.Context, documentID string, info domain.MedicalInfo) error {
	body, err := json.Marshal(payload{
		PatientFirstname:   info.PatientFirstName,
		PatientLastname:    info.PatientLastName,
		MedicalExamination: info.ExaminationType,
		ExaminationDate:    info.ExaminationDate,
		PatientBirthDate:   info.PatientBirthdate,
		DocumentID:         documentID,
		Status:             int(info.Status),
		FolderName:         info.FolderName,
	})
	if err != nil {
		return fmt.Errorf("marshal forward payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create forward request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "forward outcome", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("external api status: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		if resilience.RetryableHTTPStatus(resp.StatusCode) {
			return domain.WrapError(domain.ErrTemporary, "forward outcome", err)
		}
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
