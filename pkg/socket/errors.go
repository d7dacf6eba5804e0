package socket

import "strconv"

// SendHTTPError emits a minimal HTTP/1.0 response with a tiny HTML body,
// Connection: close, and a correct Content-Length. Neither the acceptor nor
// the default pipeline calls it or the Send400/Send403/Send501 helpers
// below; they are available to extensions that short-circuit a request.
func (s *Socket) SendHTTPError(code int, reason string) error {
	body := errorBody(code, reason)
	statusLine := "HTTP/1.0 " + strconv.Itoa(code) + " " + reason
	headers := "Content-Type: text/html; charset=utf-8\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n\r\n"
	if err := s.WriteLine(statusLine); err != nil {
		return err
	}
	if err := s.WriteBytes([]byte(headers)); err != nil {
		return err
	}
	return s.WriteBytes([]byte(body))
}

// Send400 emits a 400 Bad Request.
func (s *Socket) Send400() error { return s.SendHTTPError(400, "Bad Request") }

// Send403 emits a 403 Forbidden.
func (s *Socket) Send403() error { return s.SendHTTPError(403, "Forbidden") }

// Send404 emits a 404 Not Found.
func (s *Socket) Send404() error { return s.SendHTTPError(404, "Not Found") }

// Send501 emits a 501 Not Implemented.
func (s *Socket) Send501() error { return s.SendHTTPError(501, "Not Implemented") }

// SendRedirect emits a 302 Found redirecting to location.
func (s *Socket) SendRedirect(location string) error {
	body := errorBody(302, "Found")
	statusLine := "HTTP/1.0 302 Found"
	headers := "Location: " + location + "\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n\r\n"
	if err := s.WriteLine(statusLine); err != nil {
		return err
	}
	if err := s.WriteBytes([]byte(headers)); err != nil {
		return err
	}
	return s.WriteBytes([]byte(body))
}

func errorBody(code int, reason string) string {
	c := strconv.Itoa(code)
	return "<html><head><title>" + c + " " + reason + "</title></head>" +
		"<body><h1>" + c + " " + reason + "</h1></body></html>"
}
