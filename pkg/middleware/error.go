package middleware

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	Code      string         `json:"code,omitempty"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		resp := ErrorResponse{
			Message:   "Internal Server Error",
			RequestID: appctx.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      map[string]any{},
		}

		var he *echo.HTTPError
		var checkErr *matching.CheckError
		var httperr *httperror.HTTPError
		switch {
		case errors.As(err, &checkErr):
			status = checkErr.StatusCode()
			resp.Message = checkErr.Desc
			resp.Code = string(checkErr.Code)
		case errors.As(err, &httperr):
			// Error() carries a status prefix, clients get the bare message
			status = httperr.Code
			resp.Message = httperr.Message
			if httperr.Meta != nil {
				resp.Meta = httperr.Meta
			}
		case errors.As(err, &he):
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				resp.Message = msg
			}
		}

		log := logger.WithContext(ctx).WithError(err).WithField("status", status)
		if status >= http.StatusInternalServerError {
			log.Error("api is returning an error")
		} else {
			log.Debug("api is returning an error")
		}

		_ = c.JSON(status, resp)
	}
}
