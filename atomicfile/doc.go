/*
Package atomicfile writes files so that readers never observe partial content.

Data is written to a temporary file in the destination directory. On Close()
the temporary file is synced and then:

- renamed over the destination (New, WriteFile), replacing existing content

- hard-linked to the destination (NewExclusive, CreateFile), which fails with
an error matching os.ErrExist if the destination already exists

If Write() or Close() fails, the temporary file is removed and the destination
is left untouched.

	func saveTodo(path string, text string) error {
		w, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// a no-op after Close()
		defer w.RemoveIfNotClosed()

		_, err = w.WriteString(text)
		if err != nil {
			return err
		}
		return w.Close()
	}

Temporary files start with '.' so that they are not confused with
destination files when listing the directory.
*/
package atomicfile
