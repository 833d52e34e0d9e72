package docx

import (
	"cmp"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

const (
	nsCP       = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	nsDC       = "http://purl.org/dc/elements/1.1/"
	nsDCTerms  = "http://purl.org/dc/terms/"
	nsDCMIType = "http://purl.org/dc/dcmitype/"
	nsXSI      = "http://www.w3.org/2001/XMLSchema-instance"
	nsExtended = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
	nsVT       = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
)

func corePart(props *Properties, id uuid.UUID, created time.Time) *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("cp:coreProperties")
	root.CreateAttr("xmlns:cp", nsCP)
	root.CreateAttr("xmlns:dc", nsDC)
	root.CreateAttr("xmlns:dcterms", nsDCTerms)
	root.CreateAttr("xmlns:dcmitype", nsDCMIType)
	root.CreateAttr("xmlns:xsi", nsXSI)

	if props.Title != "" {
		root.CreateElement("dc:title").SetText(xmlText(props.Title))
	}
	if props.Creator != "" {
		root.CreateElement("dc:creator").SetText(xmlText(props.Creator))
		root.CreateElement("cp:lastModifiedBy").SetText(xmlText(props.Creator))
	}
	root.CreateElement("dc:identifier").SetText(id.URN())
	if props.Language != "" {
		root.CreateElement("dc:language").SetText(props.Language)
	}
	root.CreateElement("cp:revision").SetText("1")
	if !created.IsZero() {
		stamp := created.UTC().Format(time.RFC3339)
		for _, tag := range []string{"dcterms:created", "dcterms:modified"} {
			el := root.CreateElement(tag)
			el.CreateAttr("xsi:type", "dcterms:W3CDTF")
			el.SetText(stamp)
		}
	}
	return x
}

func appPart(props *Properties) *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("Properties")
	root.CreateAttr("xmlns", nsExtended)
	root.CreateAttr("xmlns:vt", nsVT)
	root.CreateElement("Application").SetText(xmlText(cmp.Or(props.Application, "docgen")))
	root.CreateElement("DocSecurity").SetText("0")
	root.CreateElement("ScaleCrop").SetText("false")
	root.CreateElement("LinksUpToDate").SetText("false")
	root.CreateElement("SharedDoc").SetText("false")
	root.CreateElement("HyperlinksChanged").SetText("false")
	return x
}
