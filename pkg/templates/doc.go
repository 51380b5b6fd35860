/*
Package templates builds the USSD codes that start a flow.

A Catalog maps each transaction type and operator to a template whose
{amount}, {phone} and {merchant} placeholders are filled at dial time. The
operator is detected from the counterpart's number prefix. Catalogs load from
YAML and a Store reloads them when the file changes.
*/
package templates
