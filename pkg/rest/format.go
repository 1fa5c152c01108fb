package rest

import (
	"encoding/xml"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/edgeflare/fluentrest/pkg/hal"
	"github.com/edgeflare/fluentrest/pkg/httputil"
)

// HALFormatter writes application/hal+json or application/hal+xml according
// to the Accept header. application/json, */* and a missing Accept header
// select JSON. It declines requests accepting neither.
func HALFormatter(w http.ResponseWriter, r *http.Request, res *Result) bool {
	mediaType, ok := negotiate(r.Header.Get("Accept"))
	if !ok {
		return false
	}

	status := res.Status()
	if status == http.StatusNoContent || (res.Minimal && res.Err == nil) {
		w.WriteHeader(status)
		return true
	}

	var (
		data []byte
		err  error
	)
	switch mediaType {
	case hal.MediaTypeXML:
		data, err = xml.Marshal(res.HAL())
		data = append([]byte(xml.Header), data...)
	default:
		data, err = res.HAL().MarshalJSON()
	}
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, fmt.Sprintf("encode %s: %v", mediaType, err))
		return true
	}

	httputil.Blob(w, status, data, mediaType)
	return true
}

// LinksHeaderFormatter adds an RFC 8288 Link header per result link and
// lets the chain continue.
func LinksHeaderFormatter(w http.ResponseWriter, _ *http.Request, res *Result) bool {
	for _, l := range res.Links {
		w.Header().Add("Link", fmt.Sprintf(`<%s>; rel="%s"`, expandPath(l.Href, res.Params), l.Name))
	}
	return false
}

var acceptable = map[string]string{
	hal.MediaTypeJSON:  hal.MediaTypeJSON,
	"application/json": hal.MediaTypeJSON,
	"application/*":    hal.MediaTypeJSON,
	"*/*":              hal.MediaTypeJSON,
	hal.MediaTypeXML:   hal.MediaTypeXML,
	"application/xml":  hal.MediaTypeXML,
	"text/xml":         hal.MediaTypeXML,
}

// negotiate picks the HAL media type with the highest quality in accept.
// Earlier ranges win ties.
func negotiate(accept string) (string, bool) {
	if strings.TrimSpace(accept) == "" {
		return hal.MediaTypeJSON, true
	}

	best, bestQ := "", 0.0
	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		target, ok := acceptable[mediaType]
		if !ok {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if q, err = strconv.ParseFloat(v, 64); err != nil {
				continue
			}
		}
		if q > bestQ {
			best, bestQ = target, q
		}
	}
	return best, best != ""
}
