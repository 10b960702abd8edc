package base

import (
	"bufio"
	"fmt"
	"strconv"
)

const (
	responseMaxCodeLength    = 4
	responseMaxMessageLength = 256
)

// Response is a RTSP response.
type Response struct {
	// numeric status code
	StatusCode StatusCode

	// status message
	StatusMessage string

	// map of header values
	Header Header

	// optional body
	Body []byte
}

// Unmarshal decodes a response from a buffered reader.
func (res *Response) Unmarshal(rb *bufio.Reader) error {
	byts, err := readBytesLimited(rb, ' ', requestMaxProtocolLength)
	if err != nil {
		return err
	}
	proto := byts[:len(byts)-1]

	if string(proto) != rtspProtocol10 {
		return fmt.Errorf("expected '%s', got '%s'", rtspProtocol10, proto)
	}

	byts, err = readBytesLimited(rb, ' ', responseMaxCodeLength)
	if err != nil {
		return err
	}

	statusCode, err := strconv.ParseInt(string(byts[:len(byts)-1]), 10, 32)
	if err != nil {
		return fmt.Errorf("unable to parse status code")
	}
	res.StatusCode = StatusCode(statusCode)

	byts, err = readBytesLimited(rb, '\r', responseMaxMessageLength)
	if err != nil {
		return err
	}
	res.StatusMessage = string(byts[:len(byts)-1])

	if len(res.StatusMessage) == 0 {
		return fmt.Errorf("empty status message")
	}

	err = readByteEqual(rb, '\n')
	if err != nil {
		return err
	}

	err = res.Header.unmarshal(rb)
	if err != nil {
		return err
	}

	res.Body, err = readBody(res.Header, rb)
	if err != nil {
		return err
	}

	return nil
}

// Marshal encodes a response.
func (res Response) Marshal() ([]byte, error) {
	if res.Header == nil {
		res.Header = make(Header)
	}

	if res.StatusMessage == "" {
		res.StatusMessage = StatusMessage(res.StatusCode)
	}

	if len(res.Body) != 0 {
		res.Header["Content-Length"] = HeaderValue{strconv.FormatInt(int64(len(res.Body)), 10)}
	}

	firstLine := rtspProtocol10 + " " + strconv.FormatInt(int64(res.StatusCode), 10) +
		" " + res.StatusMessage + "\r\n"

	buf := make([]byte, len(firstLine)+res.Header.marshalSize()+len(res.Body))
	pos := copy(buf, firstLine)
	pos += res.Header.marshalTo(buf[pos:])
	copy(buf[pos:], res.Body)

	return buf, nil
}

// String implements fmt.Stringer.
func (res Response) String() string {
	buf, _ := res.Marshal()
	return string(buf)
}
