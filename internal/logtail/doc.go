// Package logtail reads the tail of the station log for the in-board log
// viewer.
//
// Lines are expected in the logrus text format written by package logging:
//
//	time="2026-03-14 12:00:00" level=warning msg="push connect failed" component=feed failures=2
//
// Parse never fails. Lines that are not key=value pairs come back as info
// entries carrying the raw text as the message.
package logtail
