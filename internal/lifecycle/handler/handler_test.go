package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trustchain/internal/beneficiary"
	"trustchain/internal/ledger"
	"trustchain/internal/lifecycle"
	"trustchain/internal/lifecycle/handler/mocks"
	"trustchain/internal/lifecycle/service"
	id "trustchain/pkg/domain"
	dErrors "trustchain/pkg/domain-errors"
	authmw "trustchain/pkg/platform/middleware/auth"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token == "admin" {
		return &authmw.JWTClaims{Subject: "ngo-ops", Role: "admin"}, nil
	}
	return nil, errors.New("invalid token")
}

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	bid     id.BeneficiaryID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger, stubValidator{}, 1024)
	s.router = chi.NewRouter()
	h.Register(s.router)
	s.bid = id.NewBeneficiaryID()
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func (s *HandlerSuite) TestCreateBeneficiary() {
	s.Run("requires an admin token", func() {
		req := httptest.NewRequest(http.MethodPost, "/beneficiaries", strings.NewReader(`{}`))
		rec := s.do(req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("rejects malformed json", func() {
		req := httptest.NewRequest(http.MethodPost, "/beneficiaries", strings.NewReader(`{`))
		req.Header.Set("Authorization", "Bearer admin")
		rec := s.do(req)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(string(dErrors.CodeBadRequest), s.errorCode(rec))
	})

	s.Run("creates and returns location", func() {
		b := &beneficiary.Beneficiary{ID: s.bid, Name: "Alice", RequiredAmount: decimal.NewFromInt(100)}
		s.service.EXPECT().
			CreateBeneficiary(gomock.Any(), "Alice", gomock.Any(), "needs surgery").
			DoAndReturn(func(_ context.Context, _ string, required decimal.Decimal, _ string) (*beneficiary.Beneficiary, error) {
				s.True(required.Equal(decimal.NewFromInt(100)))
				return b, nil
			})

		req := httptest.NewRequest(http.MethodPost, "/beneficiaries",
			strings.NewReader(`{"name":"Alice","required_amount":"100.00","story":"needs surgery"}`))
		req.Header.Set("Authorization", "Bearer admin")
		rec := s.do(req)

		s.Equal(http.StatusCreated, rec.Code)
		s.Equal("/beneficiaries/"+s.bid.String(), rec.Header().Get("Location"))
	})
}

func (s *HandlerSuite) TestGetBeneficiary() {
	s.Run("invalid id", func() {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/beneficiaries/not-a-uuid", nil))
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(string(dErrors.CodeInvalidInput), s.errorCode(rec))
	})

	s.Run("not found", func() {
		s.service.EXPECT().GetStatus(gomock.Any(), s.bid).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "beneficiary not found"))
		rec := s.do(httptest.NewRequest(http.MethodGet, "/beneficiaries/"+s.bid.String(), nil))
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("returns derived state", func() {
		s.service.EXPECT().GetStatus(gomock.Any(), s.bid).Return(&service.Status{
			Beneficiary: &beneficiary.Beneficiary{ID: s.bid, Name: "Alice"},
			State:       lifecycle.StateFullyFunded,
			FundedTotal: decimal.NewFromInt(100),
		}, nil)
		rec := s.do(httptest.NewRequest(http.MethodGet, "/beneficiaries/"+s.bid.String(), nil))
		s.Equal(http.StatusOK, rec.Code)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal("FullyFunded", body["state"])
	})
}

func (s *HandlerSuite) TestListBeneficiaries() {
	s.service.EXPECT().ListBeneficiaries(gomock.Any()).Return([]*service.Status{
		{Beneficiary: &beneficiary.Beneficiary{ID: s.bid, Name: "Alice"}, State: lifecycle.StateOpen},
	}, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/beneficiaries", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"beneficiaries"`)
}

func (s *HandlerSuite) TestDonate() {
	target := "/beneficiaries/" + s.bid.String() + "/donations"

	s.Run("new donation returns created", func() {
		s.service.EXPECT().Donate(gomock.Any(), s.bid, gomock.Any(), "key-1").
			DoAndReturn(func(_ context.Context, _ id.BeneficiaryID, amount decimal.Decimal, _ string) (*service.DonationResult, error) {
				s.True(amount.Equal(decimal.RequireFromString("25.50")))
				return &service.DonationResult{State: lifecycle.StateOpen}, nil
			})
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"amount":"25.50"}`))
		req.Header.Set(IdempotencyHeader, " key-1 ")
		rec := s.do(req)
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("replay returns ok", func() {
		s.service.EXPECT().Donate(gomock.Any(), s.bid, gomock.Any(), "key-1").
			Return(&service.DonationResult{Replayed: true}, nil)
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"amount":25.5}`))
		req.Header.Set(IdempotencyHeader, "key-1")
		rec := s.do(req)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("overfunding maps to conflict", func() {
		s.service.EXPECT().Donate(gomock.Any(), s.bid, gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeOverfunding, "donation exceeds remaining amount"))
		rec := s.do(httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"amount":"1000"}`)))
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(string(dErrors.CodeOverfunding), s.errorCode(rec))
	})

	s.Run("invalid amount maps to bad request", func() {
		s.service.EXPECT().Donate(gomock.Any(), s.bid, gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive"))
		rec := s.do(httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"amount":"-1"}`)))
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("persistence failure hides details", func() {
		s.service.EXPECT().Donate(gomock.Any(), s.bid, gomock.Any(), "").
			Return(nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodePersistence, "failed to append donation"))
		rec := s.do(httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"amount":"1"}`)))
		s.Equal(http.StatusServiceUnavailable, rec.Code)
		s.NotContains(rec.Body.String(), "connection reset")
	})
}

func multipartBody(s *HandlerSuite, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	s.Require().NoError(err)
	_, err = part.Write(data)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())
	return buf, mw.FormDataContentType()
}

func (s *HandlerSuite) TestSubmitProof() {
	target := "/beneficiaries/" + s.bid.String() + "/proof"
	pdf := []byte("%PDF-1.4 receipt")

	s.Run("requires an admin token", func() {
		body, ct := multipartBody(s, "document", "receipt.pdf", "application/pdf", pdf)
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer donor")
		s.Equal(http.StatusUnauthorized, s.do(req).Code)
	})

	s.Run("missing document field", func() {
		body, ct := multipartBody(s, "other", "receipt.pdf", "application/pdf", pdf)
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer admin")
		rec := s.do(req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("document over the limit", func() {
		body, ct := multipartBody(s, "document", "big.pdf", "application/pdf", bytes.Repeat([]byte("a"), 2048))
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer admin")
		rec := s.do(req)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal(string(dErrors.CodeValidation), s.errorCode(rec))
	})

	s.Run("passes upload to the service", func() {
		s.service.EXPECT().SubmitProof(gomock.Any(), s.bid, service.Upload{
			Data:     pdf,
			MimeType: "application/pdf",
			Filename: "receipt.pdf",
		}).Return(&service.Status{State: lifecycle.StateProofPending}, nil)

		body, ct := multipartBody(s, "document", "receipt.pdf", "application/pdf", pdf)
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer admin")
		rec := s.do(req)
		s.Equal(http.StatusAccepted, rec.Code)
	})

	s.Run("not fully funded maps to conflict", func() {
		s.service.EXPECT().SubmitProof(gomock.Any(), s.bid, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFullyFunded, "beneficiary is not fully funded"))
		body, ct := multipartBody(s, "document", "receipt.pdf", "application/pdf", pdf)
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer admin")
		rec := s.do(req)
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(string(dErrors.CodeNotFullyFunded), s.errorCode(rec))
	})

	s.Run("unsupported type", func() {
		s.service.EXPECT().SubmitProof(gomock.Any(), s.bid, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnsupportedDocument, "unsupported document type"))
		body, ct := multipartBody(s, "document", "notes.txt", "text/plain", []byte("hello"))
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer admin")
		s.Equal(http.StatusUnsupportedMediaType, s.do(req).Code)
	})
}

func (s *HandlerSuite) TestCheckVerification() {
	s.service.EXPECT().CheckVerification(gomock.Any(), s.bid).Return(&service.VerificationResult{
		Status:    &service.Status{State: lifecycle.StateReleased},
		Completed: true,
	}, nil)
	rec := s.do(httptest.NewRequest(http.MethodPost, "/beneficiaries/"+s.bid.String()+"/verification", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"Released"`)
}

func (s *HandlerSuite) TestLedger() {
	s.Run("empty ledger renders an empty list", func() {
		s.service.EXPECT().EntriesFor(gomock.Any(), s.bid).Return(nil, nil)
		rec := s.do(httptest.NewRequest(http.MethodGet, "/beneficiaries/"+s.bid.String()+"/ledger", nil))
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"entries":[]}`, rec.Body.String())
	})

	s.Run("entries", func() {
		at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		e := ledger.NewMonetary(s.bid, ledger.KindDonation, decimal.NewFromInt(10), at, "donation to Alice")
		e.Seq = 1
		s.service.EXPECT().EntriesFor(gomock.Any(), s.bid).Return([]ledger.Entry{e}, nil)
		rec := s.do(httptest.NewRequest(http.MethodGet, "/beneficiaries/"+s.bid.String()+"/ledger", nil))
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"Donation"`)
	})
}
