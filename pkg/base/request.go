package base

import (
	"bufio"
	"fmt"
	"net/url"
	"strconv"
)

const (
	rtspProtocol10           = "RTSP/1.0"
	requestMaxMethodLength   = 64
	requestMaxURLLength      = 2048
	requestMaxProtocolLength = 64
)

// Request is a RTSP request.
type Request struct {
	// request method
	Method Method

	// request url
	URL *url.URL

	// map of header values
	Header Header

	// optional body
	Body []byte
}

// Unmarshal decodes a request from a buffered reader.
func (req *Request) Unmarshal(rb *bufio.Reader) error {
	// a method is a token, which never starts with a control character.
	first, err := rb.Peek(1)
	if err != nil {
		return err
	}
	if first[0] < 0x20 || first[0] == 0x7f {
		return fmt.Errorf("invalid method")
	}

	byts, err := readBytesLimited(rb, ' ', requestMaxMethodLength)
	if err != nil {
		return err
	}
	req.Method = Method(byts[:len(byts)-1])

	if req.Method == "" {
		return fmt.Errorf("empty method")
	}

	byts, err = readBytesLimited(rb, ' ', requestMaxURLLength)
	if err != nil {
		return err
	}
	rawURL := string(byts[:len(byts)-1])

	if rawURL != "*" {
		ur, err2 := url.Parse(rawURL)
		if err2 != nil || ur.Scheme != "rtsp" && ur.Scheme != "rtsps" {
			return fmt.Errorf("invalid URL (%v)", rawURL)
		}
		req.URL = ur
	} else {
		req.URL = nil
	}

	byts, err = readBytesLimited(rb, '\r', requestMaxProtocolLength)
	if err != nil {
		return err
	}
	proto := byts[:len(byts)-1]

	if string(proto) != rtspProtocol10 {
		return fmt.Errorf("expected '%s', got '%s'", rtspProtocol10, proto)
	}

	err = readByteEqual(rb, '\n')
	if err != nil {
		return err
	}

	err = req.Header.unmarshal(rb)
	if err != nil {
		return err
	}

	req.Body, err = readBody(req.Header, rb)
	if err != nil {
		return err
	}

	return nil
}

// Marshal encodes a request.
func (req Request) Marshal() ([]byte, error) {
	if req.Header == nil {
		req.Header = make(Header)
	}

	urStr := "*"
	if req.URL != nil {
		urStr = req.URL.String()
	}

	if len(req.Body) != 0 {
		req.Header["Content-Length"] = HeaderValue{strconv.FormatInt(int64(len(req.Body)), 10)}
	}

	firstLine := string(req.Method) + " " + urStr + " " + rtspProtocol10 + "\r\n"

	buf := make([]byte, len(firstLine)+req.Header.marshalSize()+len(req.Body))
	pos := copy(buf, firstLine)
	pos += req.Header.marshalTo(buf[pos:])
	copy(buf[pos:], req.Body)

	return buf, nil
}

// String implements fmt.Stringer.
func (req Request) String() string {
	buf, _ := req.Marshal()
	return string(buf)
}
