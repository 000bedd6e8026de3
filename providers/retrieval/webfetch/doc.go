// Package webfetch downloads web pages as Markdown and enriches retrieved
// sources whose content is missing.
package webfetch
