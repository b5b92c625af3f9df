package ui

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/nickpending/devicelab/internal/dialog"
)

// filesTitle is the title of the uploaded files dialog
const filesTitle = "Uploaded Apps"

// fileLinks renders file URLs as links labelled with their base names,
// one per line
func fileLinks(urls []string) string {
	links := make([]string, 0, len(urls))
	for _, u := range urls {
		links = append(links, fmt.Sprintf("<a href='%s'>%s</a>", html.EscapeString(u), html.EscapeString(api.FileName(u))))
	}
	return strings.Join(links, "<br/>")
}

// filesBody renders a listing. A single directory is a plain list of
// links; several directories get a heading each.
func filesBody(files map[string][]string) string {
	if len(files) == 1 {
		for _, urls := range files {
			return fileLinks(urls)
		}
	}

	dirs := make([]string, 0, len(files))
	for d := range files {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var b strings.Builder
	for _, d := range dirs {
		b.WriteString("<h4>" + html.EscapeString(d) + "</h4>")
		if len(files[d]) == 0 {
			b.WriteString("<p><i>empty</i></p>")
			continue
		}
		b.WriteString("<p>" + fileLinks(files[d]) + "</p>")
	}
	return b.String()
}

// filesSpec builds the uploaded files dialog for a terminal of the given
// height. onDispose runs when the dialog is gone.
func filesSpec(files map[string][]string, height int, onDispose func(*dialog.Instance)) *dialog.Spec {
	top := max(1, height/10)
	return &dialog.Spec{
		Title: filesTitle,
		Body:  filesBody(files),
		Options: dialog.Options{
			Extra: map[string]any{
				"width":     "50%",
				"height":    0.4,
				"top":       top,
				"maxHeight": max(height-2*top, 6),
			},
		},
		OnDispose: onDispose,
	}
}

// uploadSuccessSpec builds the non-modal popup shown after an upload
func uploadSuccessSpec(url string, onDispose func(*dialog.Instance)) *dialog.Spec {
	return &dialog.Spec{
		Title:          "File Uploaded Successfully!",
		Body:           `<p class="path"><code>` + html.EscapeString(url) + `</code></p>`,
		ContainerClass: "fade dialog-content",
		Options:        dialog.Options{Backdrop: dialog.BackdropNone},
		OnDispose:      onDispose,
	}
}

// uploadErrorMessage is the text of the upload failure alert. A server
// rejection is quoted verbatim.
func uploadErrorMessage(err error) string {
	msg := err.Error()
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		msg = statusErr.Message
	}
	return "error occurred while uploading file with message: " + msg
}

// errorSpec builds an alert carrying one error message
func errorSpec(title, message string, onDispose func(*dialog.Instance)) *dialog.Spec {
	return &dialog.Spec{
		Title:     title,
		Body:      "<p>" + html.EscapeString(message) + "</p>",
		OnDispose: onDispose,
	}
}

// deviceMarkdown describes a device card for the detail dialog
func deviceMarkdown(d api.Device) string {
	var b strings.Builder
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- **%s:** %s\n", label, value)
		}
	}

	fmt.Fprintf(&b, "## %s\n\n", d.Name())
	row("State", d.State())
	platform := d.Platform()
	if d.SDKVersion != "" {
		platform += " " + d.SDKVersion
	}
	row("Platform", platform)
	row("Manufacturer", d.Manufacturer)
	row("Model", d.Model)
	row("Type", d.DeviceType)
	row("IP", "`"+d.IP+"`")
	row("Browser", d.BrowserVersion)
	row("Owned by", d.OwnedBy)
	if d.AllocatedTo != nil && d.AllocatedTo.User != "" {
		alloc := d.AllocatedTo.User
		if d.AllocatedTo.IP != "" {
			alloc += " from `" + d.AllocatedTo.IP + "`"
		}
		if d.AllocatedTo.JenkinsJobLink != "" {
			alloc += fmt.Sprintf(" ([job](%s))", d.AllocatedTo.JenkinsJobLink)
		}
		row("Allocated to", alloc)
	}
	if d.StfSessionHeldBy != nil {
		row("Session held by", d.StfSessionHeldBy.Name)
	}
	if d.HasControlURL() {
		row("Control", d.URL)
	}
	return b.String()
}

// deviceSpec builds the device detail alert
func deviceSpec(d api.Device) *dialog.Spec {
	return &dialog.Spec{
		Title:       d.Name(),
		Body:        `<div class="markdown">` + html.EscapeString(deviceMarkdown(d)) + `</div>`,
		DialogClass: "device-detail",
		Options:     dialog.Options{Size: dialog.SizeLarge},
	}
}

// helpSpec builds the keyboard and command reference
func helpSpec(keys keyMap, cmds []string) *dialog.Spec {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, k := range keys.bindings() {
		h := k.Help()
		fmt.Fprintf(&b, "<li><code>%s</code> %s</li>", html.EscapeString(h.Key), html.EscapeString(h.Desc))
	}
	b.WriteString("</ul><hr/><p><b>Commands</b></p><p>")
	for i, c := range cmds {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "<code>:%s</code>", html.EscapeString(c))
	}
	b.WriteString("</p>")
	return &dialog.Spec{
		Title:   "Keyboard Shortcuts",
		Body:    b.String(),
		Options: dialog.Options{Size: dialog.SizeLarge},
	}
}

// historySpec lists recorded uploads, newest first
func historySpec(uploads []db.Upload, height int) *dialog.Spec {
	var b strings.Builder
	if len(uploads) == 0 {
		b.WriteString("<p><i>No uploads recorded yet</i></p>")
	} else {
		b.WriteString("<ul>")
		for _, u := range uploads {
			name := html.EscapeString(u.FileName)
			when := humanize.Time(u.UploadedAt)
			if u.Succeeded() {
				fmt.Fprintf(&b, "<li><b>%s</b> → %s · %s · %s</li>",
					name, html.EscapeString(u.Directory), humanize.Bytes(uint64(max(u.Size, 0))), when)
			} else {
				fmt.Fprintf(&b, "<li><b>%s</b> failed: %s · %s</li>",
					name, html.EscapeString(u.Error), when)
			}
		}
		b.WriteString("</ul>")
	}
	return &dialog.Spec{
		Title: "Upload History",
		Body:  b.String(),
		Options: dialog.Options{
			Size:  dialog.SizeLarge,
			Extra: map[string]any{"maxHeight": max(height-4, 8)},
		},
	}
}

// clearHistorySpec asks before wiping the history; onSubmit gets the answer
func clearHistorySpec(onSubmit func(bool)) *dialog.Spec {
	return &dialog.Spec{
		Title:     "Clear upload history?",
		Body:      "<p>This removes every recorded upload from this machine. Files on the server are kept.</p>",
		TextTrue:  "Clear",
		TextFalse: "Cancel",
		OnSubmit:  onSubmit,
		Options:   dialog.Options{Backdrop: dialog.BackdropStatic},
	}
}
