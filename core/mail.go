package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/darasahq/darasa/fs"
)

const (
	txtExt  = ".txt"
	htmlExt = ".html"
)

var (
	templates tmplCache
	tmplInit  sync.Once
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: tmplCacheEntry}

	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is made available to all email templates as the root context.
	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// ParseEmailTemplates parses all templates embedded under fs/templates once.
func ParseEmailTemplates(logger Logger) {
	tmplInit.Do(func() {
		templates = make(tmplCache)

		entries, err := fs.ReadDir(appfs.FS, "templates")
		if err != nil {
			logger.Fatal(fmt.Sprintf("reading templates dir: %v", err), err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			fname := entry.Name()
			ext := path.Ext(fname)
			name := strings.TrimSuffix(fname, ext)

			raw, err := fs.ReadFile(appfs.FS, path.Join("templates", fname))
			if err != nil {
				logger.Fatal(fmt.Sprintf("reading template %s: %v", fname, err), err)
			}

			entryCache, ok := templates[name]
			if !ok {
				entryCache = make(tmplCacheEntry, 2)
				templates[name] = entryCache
			}
			switch ext {
			case txtExt:
				entryCache[ext], err = texttmpl.New(fname).Parse(string(raw))
			case htmlExt:
				entryCache[ext], err = htmltmpl.New(fname).Parse(string(raw))
			}
			if err != nil {
				logger.Fatal(fmt.Sprintf("parsing template %s: %v", fname, err), err)
			}
		}
	})
}

func (m *EmailMessage) getContextData(conf *Config) ContextData {
	return ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmpl, ok := cache[ext]
	return tmpl, ok
}

func (m *EmailMessage) renderText(data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	tmpl, ok := m.getTemplate(txtExt)
	if !ok {
		return nil
	}
	var buf bytes.Buffer
	if err := tmpl.(*texttmpl.Template).Execute(&buf, data); err != nil {
		return errors.Wrapf(err, "executing template %s%s", m.TemplateName, txtExt)
	}
	m.TextContent = buf.String()
	return nil
}

func (m *EmailMessage) renderHTML(data ContextData) error {
	tmpl, ok := m.getTemplate(htmlExt)
	if !ok {
		return nil
	}
	var buf bytes.Buffer
	if err := tmpl.(*htmltmpl.Template).Execute(&buf, data); err != nil {
		return errors.Wrapf(err, "executing template %s%s", m.TemplateName, htmlExt)
	}
	m.HTMLContent = buf.String()
	return nil
}

// Render renders the message's text and HTML contents from its template (if any).
func (m *EmailMessage) Render(conf *Config) error {
	data := m.getContextData(conf)
	if err := m.renderText(data); err != nil {
		return err
	}
	return m.renderHTML(data)
}

func (m *EmailMessage) HasRecipients() bool {
	return (len(m.To) + len(m.Cc) + len(m.Bcc)) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}

func (m *EmailMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}
